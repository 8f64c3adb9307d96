package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	env "github.com/robotalks/canlink/pkg/env/bridge"
	"github.com/robotalks/canlink/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	runner := framework.NewRunner().HandleSignals()
	bridge := env.NewConfig().MustNewEnv(runner.Context)
	defer bridge.Close()

	bridge.AddToRunner(runner)
	if err := bridge.Start(); err != nil {
		glog.Errorf("query firmware version: %v", err)
	}
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
