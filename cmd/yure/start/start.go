package start

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kyokomi/emoji"
	"github.com/sasakulab/yure"
	"github.com/sasakulab/yure/api"
	"github.com/sasakulab/yure/config"
	"github.com/sasakulab/yure/log"
	"github.com/sasakulab/yure/sensor"
	"github.com/urfave/cli"
)

const shutdownTimeout = 5 * time.Second

func Cmd() cli.Command {
	return cli.Command{
		Name:      "start",
		Usage:     "Sample the sensor and stream readings until interrupted",
		UsageText: "yure start [command options]",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "url",
				Usage: "websocket server url, overrides streaming.serverUrl",
			},
			cli.IntFlag{
				Name:  "buffer-size",
				Usage: "number of readings per batch, overrides streaming.bufferSize",
			},
			cli.StringFlag{
				Name:  "sensor",
				Usage: "simulator, iio or stdin, overrides sensor.source",
			},
			cli.StringFlag{
				Name:  "device",
				Usage: "iio sysfs device directory, overrides sensor.device",
			},
			cli.StringFlag{
				Name:  "replay",
				Usage: "file of x,y,z lines for the stdin sensor, overrides sensor.path",
			},
			cli.StringFlag{
				Name:  "api",
				Usage: "status api listen address, overrides api.address",
			},
			cli.BoolFlag{
				Name:  "idle",
				Usage: "do not start streaming until requested through the api",
			},
		},
		Action: func(c *cli.Context) error {
			conf, err := config.Get()
			if err != nil {
				return err
			}
			applyFlags(c, conf)
			return startYure(conf, c.Bool("idle"), c.GlobalBool("debug"))
		},
	}
}

func applyFlags(c *cli.Context, conf *config.Config) {
	if c.IsSet("url") {
		conf.Streaming.ServerURL = c.String("url")
	}
	if c.IsSet("buffer-size") {
		conf.Streaming.BufferSize = c.Int("buffer-size")
	}
	if c.IsSet("sensor") {
		conf.Sensor.Source = c.String("sensor")
	}
	if c.IsSet("device") {
		conf.Sensor.Device = c.String("device")
	}
	if c.IsSet("replay") {
		conf.Sensor.Path = c.String("replay")
	}
	if c.IsSet("api") {
		conf.Api.Address = c.String("api")
	}
}

func startYure(conf *config.Config, idle bool, debug bool) error {
	if err := conf.Validate(); err != nil {
		emoji.Println(":broken_heart: invalid configuration:", err)
		return err
	}
	if err := log.SetLevel(conf.Log.Level); err != nil {
		return err
	}
	if debug {
		log.SetToDebug()
	}
	if conf.Log.File != "" {
		if err := log.EnableFileLogger(true, conf.Log.File); err != nil {
			return err
		}
	}

	id, err := yure.LoadOrCreateID(conf.Identity.Path)
	if err != nil {
		return err
	}

	input := os.Stdin
	if conf.Sensor.Path != "" {
		f, err := os.Open(conf.Sensor.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	s, err := sensor.New(conf.Sensor.Source, sensor.Options{
		Interval: conf.Sensor.Interval,
		Device:   conf.Sensor.Device,
		Input:    input,
	})
	if err != nil {
		return err
	}

	streamer := newStreamer(conf, yure.NewSourceAdapter(s, id, log.Component("sensor")))
	feed := yure.NewDisplayFeed(yure.DefaultDisplayCapacity)
	streamer.OnReading(feed.Push)

	var server *http.Server
	if conf.Api.Address != "" {
		server = &http.Server{
			Addr:    conf.Api.Address,
			Handler: api.NewApiHandler(streamer, feed, conf.Session(), log.Component("http")),
		}
		go func() {
			log.Info("msg", "status api started", "address", conf.Api.Address)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("msg", "status api closed", "err", err)
			}
		}()
	}

	if !idle {
		if err := streamer.Start(conf.Session()); err != nil {
			return err
		}
	}
	log.Info("msg", "yure running", "yureId", id, "sensor", conf.Sensor.Source, "url", conf.Streaming.ServerURL)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	streamer.Stop()
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		server.Shutdown(ctx)
	}
	streamer.Tracer().Trace()
	return nil
}

func newStreamer(conf *config.Config, source yure.Source) *yure.Streamer {
	transportLogger := log.Component("transport")
	dialer := yure.WebsocketDialer{
		HandshakeTimeout: conf.Transport.HandshakeTimeout,
		WriteTimeout:     conf.Transport.WriteTimeout,
	}

	return yure.NewStreamer(source,
		yure.WithStreamerLogger(log.Component("streamer")),
		yure.WithClientFactory(func(url string, listener yure.StateListener) *yure.Client {
			return yure.NewClient(url,
				yure.WithDialer(dialer),
				yure.WithBackoff(conf.Backoff()),
				yure.WithQueueSize(conf.Transport.QueueSize),
				yure.WithClientLogger(transportLogger),
				yure.WithStateListener(listener),
			)
		}),
	)
}
