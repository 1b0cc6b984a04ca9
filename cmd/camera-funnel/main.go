package main

import "github.com/oshokin/camera-funnel/cmd/camera-funnel/cmd"

func main() {
	cmd.Execute()
}
