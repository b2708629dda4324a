package main

import "github.com/vitalsense/ecglogd/internal/cli"

func main() {
	cli.Main()
}
