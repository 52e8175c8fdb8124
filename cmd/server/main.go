package main

import "github.com/eleven-am/live-translate/internal/bootstrap"

func main() {
	bootstrap.Run()
}
