//go:build ignore

// Provisions a user row for a wallet address so the listener can attribute
// its events. The web application owns user creation in production; this is
// for local and staging environments.
//
//	go run scripts/seed-user.go -wallet 0x... -db-host localhost
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/finbound/defi-assistant/pkg/config"
	"github.com/finbound/defi-assistant/pkg/db"
	"github.com/finbound/defi-assistant/pkg/db/dao"
	"github.com/finbound/defi-assistant/pkg/pgutil"
)

func main() {
	wallet := flag.String("wallet", "", "wallet address to provision")
	host := flag.String("db-host", "localhost", "database host")
	port := flag.Int("db-port", 5432, "database port")
	user := flag.String("db-user", "postgres", "database user")
	password := flag.String("db-password", "postgres", "database password")
	name := flag.String("db-name", "assistant", "database name")
	flag.Parse()

	if *wallet == "" {
		fmt.Fprintln(os.Stderr, "missing -wallet")
		os.Exit(1)
	}

	conn, err := pgutil.ConnectDB(&config.DatabaseConfig{
		Host:     *host,
		Port:     *port,
		User:     *user,
		Password: *password,
		Database: *name,
		SSLMode:  "disable",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx := context.Background()
	store := db.NewStore(conn)

	if existing, err := store.GetUserByWallet(ctx, *wallet); err == nil {
		fmt.Printf("user already exists: %s -> %s\n", *wallet, existing.ID)
		return
	}

	row := &dao.UserDao{WalletAddress: *wallet}
	if err := store.CreateUser(ctx, row); err != nil {
		fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created user %s for wallet %s\n", row.ID, *wallet)
}
