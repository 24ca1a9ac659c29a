package main

import (
	"fmt"
	"net/http"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/server"
	"github.com/rentfi/go-rentfi/service/logger"
	sentryutil "github.com/rentfi/go-rentfi/service/sentry"
)

func main() {
	defer sentryutil.RecoverAndRaise(nil)

	server.Init()

	port := env.GetInt("PORT")
	logger.For(nil).Infof("listening on :%d", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil); err != nil {
		logger.For(nil).Fatalf("server exited: %s", err)
	}
}
