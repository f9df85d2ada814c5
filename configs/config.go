package configs

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	MongoURI                string
	DBName                  string
	DefaultPageSize         int
	MaxPageSize             int
	NearbyMaxDistanceMeters float64
	AllowedOrigins          []string
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	defaultPageSize := 20
	if val := os.Getenv("DEFAULT_PAGE_SIZE"); val != "" {
		if _, err := fmt.Sscanf(val, "%d", &defaultPageSize); err != nil {
			log.Fatalf("Invalid DEFAULT_PAGE_SIZE: %v", err)
		}
	}

	maxPageSize := 100
	if val := os.Getenv("MAX_PAGE_SIZE"); val != "" {
		if _, err := fmt.Sscanf(val, "%d", &maxPageSize); err != nil {
			log.Fatalf("Invalid MAX_PAGE_SIZE: %v", err)
		}
	}

	nearbyMaxDistance := 1000.0
	if val := os.Getenv("NEARBY_MAX_DISTANCE_METERS"); val != "" {
		if _, err := fmt.Sscanf(val, "%f", &nearbyMaxDistance); err != nil {
			log.Fatalf("Invalid NEARBY_MAX_DISTANCE_METERS: %v", err)
		}
	}

	allowedOrigins := []string{"*"}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		allowedOrigins = strings.Split(val, ",")
	}

	return Config{
		Port:                    os.Getenv("PORT"),
		MongoURI:                os.Getenv("MONGO_URI"),
		DBName:                  os.Getenv("DB_NAME"),
		DefaultPageSize:         defaultPageSize,
		MaxPageSize:             maxPageSize,
		NearbyMaxDistanceMeters: nearbyMaxDistance,
		AllowedOrigins:          allowedOrigins,
	}
}
