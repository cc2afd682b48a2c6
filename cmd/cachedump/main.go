package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"wordhero/internal/auth"
	"wordhero/internal/config"
	"wordhero/internal/database"
	"wordhero/internal/models"
	"wordhero/internal/repository"
	"wordhero/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	resetCmd := flag.NewFlagSet("reset-words", flag.ExitOnError)
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	seedCmd := flag.NewFlagSet("seed-words", flag.ExitOnError)
	deleteCmd := flag.NewFlagSet("delete-word", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: cache_YYYYMMDD_HHMMSS.json)")
	exportWords := exportCmd.Bool("words", false, "Include the cached word list")

	// Reset flags
	resetUser := resetCmd.String("user", "", "User ID whose served-word history is cleared (required)")

	// Token flags
	tokenUser := tokenCmd.String("user", "", "User ID (required)")
	tokenRole := tokenCmd.String("role", "student", "Role: student, teacher, or admin")
	tokenTTL := tokenCmd.Duration("ttl", 30*24*time.Hour, "Token lifetime")

	// Word bank flags
	seedFile := seedCmd.String("file", "", "JSON file with an array of words (required)")
	seedBy := seedCmd.String("by", "admin", "User ID recorded as the creator")
	deleteID := deleteCmd.String("id", "", "Word ID to delete (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		cache := openCache(ctx, cfg.CachePath)
		defer cache.Close()
		handleExport(ctx, service.NewExportService(cache), *exportOutput, *exportWords)

	case "reset-words":
		resetCmd.Parse(os.Args[2:])
		if *resetUser == "" {
			fmt.Println("Error: -user flag is required")
			resetCmd.PrintDefaults()
			os.Exit(1)
		}
		cache := openCache(ctx, cfg.CachePath)
		defer cache.Close()
		if err := cache.ResetUsedWords(ctx, *resetUser); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Printf("Cleared served-word history of %s", *resetUser)

	case "token":
		tokenCmd.Parse(os.Args[2:])
		if *tokenUser == "" {
			fmt.Println("Error: -user flag is required")
			tokenCmd.PrintDefaults()
			os.Exit(1)
		}
		token, err := auth.IssueToken(cfg.JWTSecret, auth.Identity{UserID: *tokenUser, Role: models.Role(*tokenRole)}, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)

	case "seed-words":
		seedCmd.Parse(os.Args[2:])
		if *seedFile == "" {
			fmt.Println("Error: -file flag is required")
			seedCmd.PrintDefaults()
			os.Exit(1)
		}
		store, closeStore := openRemote(ctx, cfg)
		defer closeStore()
		handleSeed(ctx, store, *seedFile, *seedBy)

	case "delete-word":
		deleteCmd.Parse(os.Args[2:])
		if *deleteID == "" {
			fmt.Println("Error: -id flag is required")
			deleteCmd.PrintDefaults()
			os.Exit(1)
		}
		store, closeStore := openRemote(ctx, cfg)
		defer closeStore()
		if err := store.DeleteWord(ctx, *deleteID); err != nil {
			log.Fatalf("Delete failed: %v", err)
		}
		log.Printf("Deleted word %s", *deleteID)

	default:
		printUsage()
		os.Exit(1)
	}
}

func openCache(ctx context.Context, path string) *repository.LocalCache {
	cache, err := repository.OpenLocalCache(ctx, path)
	if err != nil {
		log.Fatalf("Failed to open local cache %s: %v", path, err)
	}
	return cache
}

func openRemote(ctx context.Context, cfg *config.Config) (repository.RemoteStore, func()) {
	db, err := database.InitializeWithType(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize remote store: %v", err)
	}
	store, err := repository.NewSQLRemoteStore(ctx, db)
	if err != nil {
		db.Close()
		log.Fatalf("Failed to prepare remote store: %v", err)
	}
	retrying := repository.NewRetryingRemoteStore(store, repository.RetryPolicy{
		MaxAttempts: cfg.RemoteMaxAttempts,
		Backoff:     repository.ExponentialBackoff(cfg.RemoteBackoff, 8*cfg.RemoteBackoff),
	})
	return retrying, func() { db.Close() }
}

func handleSeed(ctx context.Context, store repository.RemoteStore, path, createdBy string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	var words []models.Word
	if err := json.Unmarshal(data, &words); err != nil {
		log.Fatalf("Failed to parse %s: %v", path, err)
	}

	for i, word := range words {
		if d, err := models.ParseDifficulty(string(word.Difficulty)); err == nil {
			word.Difficulty = d
		}
		if err := word.Validate(); err != nil {
			log.Fatalf("Word %d in %s: %v", i, path, err)
		}
		if err := store.PutWord(ctx, word, createdBy); err != nil {
			log.Fatalf("Failed to save word %s: %v", word.ID, err)
		}
	}
	log.Printf("Seeded %d words from %s", len(words), path)
}

func handleExport(ctx context.Context, exportService *service.ExportService, outputPath string, withWords bool) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("cache_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting local cache to: %s", outputPath)
	if err := exportService.ExportToFile(ctx, outputPath, withWords); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Printf("Export complete! File size: %.2f KB", float64(fileInfo.Size())/1024)
	}
}

func printUsage() {
	fmt.Println("Word Hero Local Cache Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cachedump export [options]         Export the local cache to a JSON file")
	fmt.Println("  cachedump reset-words -user <id>   Clear a user's served-word history")
	fmt.Println("  cachedump token -user <id>         Print a signed token for the sync agent")
	fmt.Println("  cachedump seed-words -file <json>  Add or replace words in the remote word bank")
	fmt.Println("  cachedump delete-word -id <id>     Remove a word from the remote word bank")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: cache_YYYYMMDD_HHMMSS.json)")
	fmt.Println("  -words            Include the cached word list")
	fmt.Println()
	fmt.Println("Token Options:")
	fmt.Println("  -role <role>      student, teacher, or admin (default: student)")
	fmt.Println("  -ttl <duration>   Token lifetime (default: 720h)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  CACHE_PATH    Local cache file (default: ./wordhero-cache.db)")
	fmt.Println("  JWT_SECRET    Secret used to sign agent tokens")
	fmt.Println("  DATABASE_TYPE Remote store type for seed-words and delete-word (default: sqlite)")
}
