// Command generate regenerates testdata/methods.json, the payment methods
// seeded into an empty database on first server start.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/somalearn/payclaims/internal/domain"
)

func main() {
	baseDir := findTestdataDir()
	created := time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)

	methodSeed := []domain.PaymentMethod{
		{
			ID:          "PM-a3f1c2d4-0001-4f7e-9b21-6d2c8a5e1f01",
			Type:        domain.MethodMpesa,
			Account:     "+255712000001",
			DisplayName: "M-Pesa Till (Primary)",
			Active:      true,
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		{
			ID:          "PM-a3f1c2d4-0002-4f7e-9b21-6d2c8a5e1f02",
			Type:        domain.MethodTigoPesa,
			Account:     "+255652000002",
			DisplayName: "Tigo Pesa (Primary)",
			Active:      true,
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		{
			ID:          "PM-a3f1c2d4-0003-4f7e-9b21-6d2c8a5e1f03",
			Type:        domain.MethodMpesa,
			Account:     "+255712000099",
			DisplayName: "M-Pesa Till (Retired)",
			Active:      false,
			CreatedAt:   created,
			UpdatedAt:   created.AddDate(0, 0, 7),
		},
	}

	data, err := json.MarshalIndent(methodSeed, "", "  ")
	if err != nil {
		log.Fatalf("marshal methods: %v", err)
	}
	data = append(data, '\n')

	outPath := filepath.Join(baseDir, "methods.json")
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", outPath, err)
	}
	fmt.Printf("Wrote %d payment methods to %s\n", len(methodSeed), outPath)
}

func findTestdataDir() string {
	candidates := []string{"testdata", filepath.Join("..", ".."), "."}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && fi.IsDir() {
			if filepath.Base(c) == "testdata" {
				return c
			}
			sub := filepath.Join(c, "testdata")
			if fi, err := os.Stat(sub); err == nil && fi.IsDir() {
				return sub
			}
		}
	}
	return "testdata"
}
