package yure

import (
	"encoding/json"
	"fmt"
)

// Reading is one timestamped 3-axis motion sample tagged with the
// identifier of the device which produced it.
type Reading struct {
	YureID    string
	X         float64
	Y         float64
	Z         float64
	Timestamp int64 // epoch millis
}

// wire record understood by the remote endpoint
type wireReading struct {
	YureID string  `json:"yureId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	T      int64   `json:"t"`
}

// Encoder serializes a batch of readings into one transport message.
type Encoder func(batch []Reading) ([]byte, error)

// EncodeBatch encodes a batch as a JSON array of wire records, keeping
// the order of the batch.
func EncodeBatch(batch []Reading) ([]byte, error) {
	records := make([]wireReading, len(batch))
	for i, r := range batch {
		records[i] = wireReading{
			YureID: r.YureID,
			X:      r.X,
			Y:      r.Y,
			Z:      r.Z,
			T:      r.Timestamp,
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("fail to encode batch of %d readings: %s", len(batch), err)
	}
	return data, nil
}

// DecodeBatch parses a message produced by EncodeBatch.
func DecodeBatch(data []byte) ([]Reading, error) {
	records := make([]wireReading, 0)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("fail to decode batch: %s", err)
	}

	batch := make([]Reading, len(records))
	for i, rec := range records {
		batch[i] = Reading{
			YureID:    rec.YureID,
			X:         rec.X,
			Y:         rec.Y,
			Z:         rec.Z,
			Timestamp: rec.T,
		}
	}
	return batch, nil
}
