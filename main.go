/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/secretshare/webserver/cmd"

func main() {
	cmd.Execute()
}
