/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/wikistore/cosbackend/cmd"

func main() {
	cmd.Execute()
}
