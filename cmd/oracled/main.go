package main

import (
	"log"

	"oddsbook/services/oracled"
)

func main() {
	if err := oracled.Main(); err != nil {
		log.Fatalf("oracled: %v", err)
	}
}
