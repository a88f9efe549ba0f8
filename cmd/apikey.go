package cmd

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"example.com/rfidscan/internal/models"
	"example.com/rfidscan/internal/utils"

	"github.com/spf13/cobra"
)

var (
	apiKeyName     string
	apiKeyAccount  string
	authLevel      int
	expirationDays int
)

// apiKeyCmd represents the apikey command
var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
	Long:  `Create, list, and delete API keys. Every key speaks for one account.`,
}

var generateKeyCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key",
	Long: `Generate a new API key bound to an account, with an authorization level:
  1: Viewer (read scanners, search scans)
  2: Writer (submit scans and reset the bound account's scanner)
  3: Sudo (also provision new scanners)`,
	Run: func(cmd *cobra.Command, args []string) {
		generateAPIKey()
	},
}

var listKeysCmd = &cobra.Command{
	Use:   "list",
	Short: "List all API keys",
	Run: func(cmd *cobra.Command, args []string) {
		listAPIKeys()
	},
}

var deleteKeyCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an API key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			log.Fatalf("Invalid ID format: %v", err)
		}
		deleteAPIKey(uint(id))
	},
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(generateKeyCmd)
	apiKeyCmd.AddCommand(listKeysCmd)
	apiKeyCmd.AddCommand(deleteKeyCmd)

	generateKeyCmd.Flags().StringVarP(&apiKeyName, "name", "n", "", "Name for the API key (required)")
	generateKeyCmd.Flags().StringVarP(&apiKeyAccount, "account", "a", "", "Account the key acts as (required)")
	generateKeyCmd.Flags().IntVarP(&authLevel, "level", "l", 2, "Authorization level (1-3)")
	generateKeyCmd.Flags().IntVarP(&expirationDays, "expiration", "e", 365, "Expiration in days (0 for never)")
	generateKeyCmd.MarkFlagRequired("name")
	generateKeyCmd.MarkFlagRequired("account")
}

// generateSecureKey generates a random URL-safe key of length bytes
func generateSecureKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func generateAPIKey() {
	level := models.AuthorizationLevel(authLevel)
	if level < models.ViewerAuthLevel || level > models.SudoAuthLevel {
		log.Fatalf("Invalid authorization level %d. Must be 1, 2, or 3.", authLevel)
	}
	if !utils.IsValidAccount(apiKeyAccount) {
		log.Fatalf("Invalid account %q", apiKeyAccount)
	}

	repo, closeDB := openRepository()
	defer closeDB()

	key, err := generateSecureKey(32)
	if err != nil {
		log.Fatalf("Failed to generate secure key: %v", err)
	}

	apiKey := &models.APIKey{
		Key:                key,
		Name:               apiKeyName,
		Account:            apiKeyAccount,
		AuthorizationLevel: level,
	}
	if expirationDays > 0 {
		expiry := time.Now().AddDate(0, 0, expirationDays)
		apiKey.ExpiresAt = &expiry
	}

	if err := repo.CreateAPIKey(context.Background(), apiKey); err != nil {
		log.Fatalf("Failed to save API key: %v", err)
	}

	fmt.Println("=================================================================")
	fmt.Println("API Key generated successfully!")
	fmt.Println("=================================================================")
	printAPIKey(apiKey)
	fmt.Printf("API Key: %s\n", apiKey.Key)
	fmt.Println("-----------------------------------------------------------------")
	fmt.Println("IMPORTANT: Store this key securely. It won't be displayed again.")
	fmt.Println("=================================================================")
}

func listAPIKeys() {
	repo, closeDB := openRepository()
	defer closeDB()

	apiKeys, err := repo.ListAPIKeys(context.Background())
	if err != nil {
		log.Fatalf("Failed to list API keys: %v", err)
	}

	fmt.Println("=================================================================")
	fmt.Printf("Total API Keys: %d\n", len(apiKeys))
	fmt.Println("=================================================================")
	for _, key := range apiKeys {
		printAPIKey(key)
		if key.LastUsedAt != nil {
			fmt.Printf("Last Used: %s\n", key.LastUsedAt.Format(time.RFC3339))
		} else {
			fmt.Println("Last Used: Never")
		}
		fmt.Println("-----------------------------------------------------------------")
	}
}

func deleteAPIKey(id uint) {
	repo, closeDB := openRepository()
	defer closeDB()

	if err := repo.DeleteAPIKey(context.Background(), id); err != nil {
		log.Fatalf("Failed to delete API key: %v", err)
	}

	fmt.Printf("API key with ID %d deleted successfully.\n", id)
}

func printAPIKey(key *models.APIKey) {
	fmt.Printf("ID: %d\n", key.ID)
	fmt.Printf("Name: %s\n", key.Name)
	fmt.Printf("Account: %s\n", key.Account)
	fmt.Printf("Authorization Level: %d\n", key.AuthorizationLevel)
	if key.ExpiresAt != nil {
		fmt.Printf("Expires: %s\n", key.ExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Println("Expires: Never")
	}
}
