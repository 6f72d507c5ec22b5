// Package main is a diagnostic tool for testing database connectivity and
// inspecting live platform data. It connects to the database, queries the
// apps and deployments tables, and prints a summary to stdout. The binary
// exits with a non-zero code on any failure so it can be embedded in health
// checks or CI/CD pipeline steps to gate deployments on a reachable,
// populated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "platform"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=platform password=%s dbname=cloud_deploy_platform sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check apps
	fmt.Println("=== APPS ===")
	rows, err := db.Query("SELECT id, owner_id, name, status FROM apps")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, ownerID, name, status string
		if err := rows.Scan(&id, &ownerID, &name, &status); err != nil {
			log.Printf("Warning: failed to scan app row: %v", err)
			continue
		}
		fmt.Printf("App: %s (status: %s, owner: %s, ID: %s)\n", name, status, ownerID, id)
	}

	// Check deployments
	fmt.Println("\n=== DEPLOYMENTS ===")
	rows2, err := db.Query("SELECT id, app_id, status, started_at FROM deployments ORDER BY started_at DESC")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	count := 0
	for rows2.Next() {
		var id, appID, status, startedAt string
		if err := rows2.Scan(&id, &appID, &status, &startedAt); err != nil {
			log.Printf("Warning: failed to scan deployment row: %v", err)
			continue
		}
		fmt.Printf("Deployment: %s (App ID: %s, status: %s, started: %s)\n", id, appID, status, startedAt)
		count++
	}

	if count == 0 {
		fmt.Println("No deployments found!")
	}
}
