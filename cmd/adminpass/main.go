// Command adminpass prints the bcrypt hash of a dashboard password so that
// admin accounts can be provisioned with plain SQL.
//
//	adminpass -cost 12 'secret'
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/iliyamo/parking-lot-billing/internal/config"
	"github.com/iliyamo/parking-lot-billing/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cost := flag.Int("cost", config.BcryptCost(), "bcrypt cost (defaults to BCRYPT_COST or 12)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: adminpass [-cost N] <password>")
		os.Exit(2)
	}
	hash, err := utils.HashPassword(flag.Arg(0), *cost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	fmt.Println(hash)
}
