package init

import (
	"github.com/kyokomi/emoji"
	"github.com/sasakulab/yure/config"
	"github.com/urfave/cli"
)

func Cmd() cli.Command {
	return cli.Command{
		Name:      "init",
		Usage:     "Initialize yure configuration",
		UsageText: "yure init [FILE_PATH]",
		Action: func(c *cli.Context) error {
			return initYure(c.Args().First())
		},
	}
}

func initYure(sourcePath string) error {
	if err := config.Init(sourcePath); err != nil {
		emoji.Println(":broken_heart: initialize failed with error:", err)
		return err
	}
	emoji.Printf(":beer: successfully initialized at %s\n", config.Path())
	return nil
}
