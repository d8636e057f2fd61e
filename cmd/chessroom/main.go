package main

import "github.com/chessroom/chessroom/internal/cli"

func main() {
	cli.Execute()
}
