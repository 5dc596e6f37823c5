package main

import "ctfhub/internal/server"

func main() {
	server.StartGinServer()
}
