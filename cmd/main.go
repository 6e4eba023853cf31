package main

import (
	"github.com/kantinku/order/internal/app"
	"github.com/kantinku/order/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
