package main

import "log"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("aegis-maint: %v", err)
	}
}
