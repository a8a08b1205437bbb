package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

// Validates report catalogs against the catalog JSON schema before they are
// deployed next to the app.
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: pivotgrid-validator <schema_path> <catalog_path1> [catalog_path2] ...")
		os.Exit(1)
	}

	schemaPath, err := filepath.Abs(os.Args[1])
	if err != nil {
		log.Fatalf("Invalid schema path: %v", err)
	}
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + schemaPath)

	allValid := true
	for _, arg := range os.Args[2:] {
		catalogPath, err := filepath.Abs(arg)
		if err != nil {
			fmt.Printf("❌ Invalid catalog path: %s\n", arg)
			allValid = false
			continue
		}

		documentLoader := gojsonschema.NewReferenceLoader("file://" + catalogPath)
		result, err := gojsonschema.Validate(schemaLoader, documentLoader)
		if err != nil {
			fmt.Printf("❌ Error validating %s: %v\n", filepath.Base(catalogPath), err)
			allValid = false
			continue
		}

		if result.Valid() {
			fmt.Printf("✅ %s is valid.\n", filepath.Base(catalogPath))
			continue
		}
		fmt.Printf("❌ %s is invalid!\n", filepath.Base(catalogPath))
		for _, desc := range result.Errors() {
			fmt.Printf("   - %s\n", desc)
		}
		allValid = false
	}

	if !allValid {
		os.Exit(1)
	}
}
