/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/minaqr/botserver/cmd"

func main() {
	cmd.Execute()
}
