package main

import "github.com/xiaoyuanzhu-com/sessionhub/cmd"

func main() {
	cmd.Execute()
}
