package main

import "github.com/amtech-gn/ms-go-orangemoney/cmd"

func main() {
	cmd.Execute()
}
