package main

import (
	"github.com/smartkitchen/kitchensync/internal/app"
	"github.com/smartkitchen/kitchensync/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
