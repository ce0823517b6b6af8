package main

import "github.com/ValentinKolb/nvKV/cmd"

func main() {
	cmd.Execute()
}
