package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"travelbook/internal/config"
	"travelbook/internal/database"
	"travelbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type seedPlace struct {
	ID       string `yaml:"id"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Price    string `yaml:"price"`
	Details  string `yaml:"details"`
	Category string `yaml:"category"`
	BusType  string `yaml:"bus_type"`
	Days     string `yaml:"days"`
}

type PlacesConfig struct {
	Places []seedPlace `yaml:"places"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	defaultPlaces := os.Getenv("PLACES_PATH")
	if defaultPlaces == "" {
		defaultPlaces = "configs/places.yaml"
	}
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}
	var (
		placesPath = flag.String("places", defaultPlaces, "path to places.yaml")
		configPath = flag.String("config", defaultConfig, "path to config.yaml")
	)
	flag.Parse()

	data, err := os.ReadFile(*placesPath)
	if err != nil {
		return fmt.Errorf("read places: %w", err)
	}
	var seed PlacesConfig
	if err = yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse places: %w", err)
	}
	if len(seed.Places) == 0 {
		return fmt.Errorf("no places in yaml")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg.Database, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	updated := 0
	for i, sp := range seed.Places {
		place, err := sp.toPlace()
		if err != nil {
			return fmt.Errorf("place #%d: %w", i+1, err)
		}

		existing, err := db.GetPlace(ctx, place.ID)
		if err == nil {
			// фото из админки не трогаем
			place.Photo = existing.Photo
			if err = db.UpdatePlace(ctx, place); err != nil {
				return fmt.Errorf("update %s: %w", place.ID, err)
			}
			updated++
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("get %s: %w", place.ID, err)
		}
		if err = db.CreatePlace(ctx, place); err != nil {
			return fmt.Errorf("create %s: %w", place.ID, err)
		}
		created++
	}

	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}

func (sp seedPlace) toPlace() (*models.Place, error) {
	place := &models.Place{
		ID:        strings.TrimSpace(sp.ID),
		From:      strings.TrimSpace(sp.From),
		To:        strings.TrimSpace(sp.To),
		Details:   strings.TrimSpace(sp.Details),
		Category:  strings.ToLower(strings.TrimSpace(sp.Category)),
		BusType:   strings.TrimSpace(sp.BusType),
		Days:      strings.TrimSpace(sp.Days),
		CreatedBy: "seed",
		Price:     decimal.Zero,
	}
	switch {
	case place.ID == "":
		return nil, fmt.Errorf("id is required")
	case place.From == "" || place.To == "":
		return nil, fmt.Errorf("%s: from and to are required", place.ID)
	case !models.IsCategory(place.Category):
		return nil, fmt.Errorf("%s: unknown category %q", place.ID, sp.Category)
	case place.BusType != "" && !models.IsBusType(place.BusType):
		return nil, fmt.Errorf("%s: unknown bus type %q", place.ID, place.BusType)
	case place.Days != "" && !models.IsTripDays(place.Days):
		return nil, fmt.Errorf("%s: unknown trip length %q", place.ID, place.Days)
	}
	if price := strings.TrimSpace(sp.Price); price != "" {
		p, err := decimal.NewFromString(price)
		if err != nil || p.IsNegative() {
			return nil, fmt.Errorf("%s: bad price %q", place.ID, sp.Price)
		}
		place.Price = p.Round(2)
	}
	return place, nil
}
