package main

import (
	"os"
	"time"

	idCmd "github.com/sasakulab/yure/cmd/yure/id"
	initCmd "github.com/sasakulab/yure/cmd/yure/init"
	startCmd "github.com/sasakulab/yure/cmd/yure/start"
	"github.com/sasakulab/yure/config"
	"github.com/sasakulab/yure/log"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "yure"
	app.Version = "0.1.0"
	app.Compiled = time.Now()
	app.Usage = "stream accelerometer readings to a yure server over websocket"
	app.UsageText = "yure [options] command [command options] [arguments...]"
	app.Authors = []cli.Author{
		{
			Name: "sasakulab",
		},
	}
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "set debug mode",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "configuration file (default $HOME/.yure/config.yml)",
		},
	}
	app.Before = func(c *cli.Context) error {
		config.SetPath(c.GlobalString("config"))
		if c.GlobalBool("debug") {
			log.SetToDebug()
		}
		return nil
	}

	app.Commands = []cli.Command{}
	app.Commands = append(app.Commands, initCmd.Cmd())
	app.Commands = append(app.Commands, idCmd.Cmd())
	app.Commands = append(app.Commands, startCmd.Cmd())

	err := app.Run(os.Args)
	if err != nil {
		log.Error("msg", "yure exited", "err", err)
		os.Exit(1)
	}
}
