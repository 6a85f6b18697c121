package main

import (
	"fmt"
	"log"

	"github.com/indigo-web/streamecho"
)

const addr = "127.0.0.1:8000"

func main() {
	app := streamecho.New(addr).
		Listen("", streamecho.EventLoop()).
		NotifyOnStart(func() {
			fmt.Printf("Listening on http://%s/\n", addr)
		})

	if err := app.Serve(); err != nil {
		log.Fatal(err)
	}
}
