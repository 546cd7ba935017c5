package main

import (
	"log"
	"os"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/document"
	"github.com/trezcool/masomo-admin/core/session"
	apisvc "github.com/trezcool/masomo-admin/services/api"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	notifsvc "github.com/trezcool/masomo-admin/services/notification"
)

func main() {
	defer os.Exit(0)

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds)
	conf := core.Conf

	var logger core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewConsoleLogger(std)
	}

	// set up services
	sess := session.New()
	client, err := apisvc.NewClient(&apisvc.Options{
		BaseURL: conf.API.BaseURL,
		Timeout: conf.API.Timeout,
		Session: sess,
		Notify:  notifsvc.NewConsoleService(std, conf),
		Logger:  logger,
	})
	errAndDie(std, err)
	docSvc := document.NewService(client, logger, conf)
	defer docSvc.StopPolling()

	// start CLI
	cli := commandLine{
		client: client,
		docSvc: docSvc,
		sess:   sess,
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
