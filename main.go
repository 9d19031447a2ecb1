package main

import "github.com/AlekLefebvre/pngme/cmd/pngme"

func main() { pngme.Execute() }
