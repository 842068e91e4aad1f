package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"tradeops_app_go/config"
	"tradeops_app_go/db"
	"tradeops_app_go/models"
	"tradeops_app_go/services/docgen"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	fmt.Println("=== Create Company Profile ===")
	fmt.Println()

	name := prompt("Name: ")
	slug := strings.ToLower(prompt("Slug (selects template variants): "))
	email := prompt("Email: ")
	currency := strings.ToUpper(prompt("Default currency [" + cfg.DefaultCurrency + "]: "))

	if name == "" || slug == "" {
		log.Fatal("Name and slug are required")
	}
	if safe := strings.ToLower(docgen.SafeFilenamePart(slug)); safe != slug || strings.Contains(slug, ".") {
		log.Fatalf("Slug must only contain letters, digits, '-' and '_' (try %q)", strings.ReplaceAll(safe, ".", "-"))
	}
	if currency == "" {
		currency = cfg.DefaultCurrency
	}

	var existing models.CompanyProfile
	if err := db.DB.Where("slug = ?", slug).First(&existing).Error; err == nil {
		log.Fatalf("Company with slug %s already exists", slug)
	}

	company := &models.CompanyProfile{
		Slug:            slug,
		Name:            name,
		Email:           email,
		DefaultCurrency: currency,
	}
	if err := db.DB.Create(company).Error; err != nil {
		log.Fatalf("Failed to create company: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ Company created successfully!")
	fmt.Printf("  ID: %s\n", company.ID)
	fmt.Printf("  Slug: %s\n", company.Slug)
	fmt.Printf("  Currency: %s\n", company.DefaultCurrency)
	fmt.Println()
	fmt.Printf("Send \"X-Company: %s\" with API requests. Templates named quotation_%s.docx override the defaults.\n", slug, slug)
}
