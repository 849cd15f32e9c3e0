package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagConfig  string
	flagDevice  string
	flagHelp    bool
	flagVersion bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "Path to config.ini (overrides UTIM_CONFIG)")
	flag.StringVarP(&flagDevice, "device", "d", "", "Serial device to use as the DEVICE connection (default: in-process loopback)")
	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Universal Thing Identity Module daemon

Usage: utim [OPTION]...

Configuration:
  -c, --config=FILE   Path to config.ini (default: $UTIM_CONFIG or ./config.ini)
  -d, --device=FILE   Serial device for the DEVICE connection (default: loopback)

Miscellaneous:
  -h, --help          Prints this help message and exits
  -v, --version       Prints version information and exits

UTIM_MASTER_KEY must be set in the environment to the hex-encoded SRP
password shared with the Uhost.`

func help() {
	c := color.New(color.FgCyan)
	c.Println("utim")
	fmt.Println(helpString)
}
