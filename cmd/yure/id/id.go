package id

import (
	"fmt"

	"github.com/sasakulab/yure"
	"github.com/sasakulab/yure/config"
	"github.com/urfave/cli"
)

func Cmd() cli.Command {
	return cli.Command{
		Name:      "id",
		Usage:     "Print the yure identifier of this device, creating it on first use",
		UsageText: "yure id",
		Action: func(c *cli.Context) error {
			conf, err := config.Get()
			if err != nil {
				return err
			}
			id, err := yure.LoadOrCreateID(conf.Identity.Path)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
}
