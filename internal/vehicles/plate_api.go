package vehicles

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"net/http"
	"net/url"

	"github.com/piecehub/piecehub-backend/pkg/config"
)

// PlateData is the normalized result of a registration lookup.
type PlateData struct {
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	FuelType     *string `json:"fuel_type"`
	EngineSize   *string `json:"engine_size"`
	EngineCode   *string `json:"engine_code"`
	Transmission *string `json:"transmission"`
	BodyType     *string `json:"body_type"`
	VIN          *string `json:"vin"`
}

// PlateAPI resolves a cleaned registration plate to vehicle attributes.
type PlateAPI interface {
	Lookup(ctx context.Context, plate string) (*PlateData, error)
}

type httpPlateAPI struct {
	cfg    config.VehicleAPIConfig
	client *http.Client
}

// NewPlateAPI builds the registration API client. Without a configured URL and
// key it returns the deterministic simulator used in dev environments.
func NewPlateAPI(cfg config.VehicleAPIConfig) PlateAPI {
	if cfg.URL == "" || cfg.APIKey == "" {
		return NewMockPlateAPI()
	}
	return &httpPlateAPI{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *httpPlateAPI) Lookup(ctx context.Context, plate string) (*PlateData, error) {
	endpoint, err := url.Parse(a.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse vehicle api url: %w", err)
	}
	query := endpoint.Query()
	query.Set("registration", plate)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build vehicle api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call vehicle api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vehicle api returned status %d", resp.StatusCode)
	}

	var data PlateData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode vehicle api response: %w", err)
	}
	if data.Make == "" || data.Model == "" {
		return nil, fmt.Errorf("vehicle api returned no vehicle for plate")
	}
	return &data, nil
}

type mockPlateAPI struct{}

// NewMockPlateAPI returns a deterministic plate resolver. The same plate
// always maps to the same vehicle, which keeps dev and test data stable.
func NewMockPlateAPI() PlateAPI {
	return mockPlateAPI{}
}

var (
	mockMakes         = []string{"Renault", "Peugeot", "Citroën", "Volkswagen", "BMW", "Mercedes"}
	mockModels        = []string{"Clio", "208", "C3", "Golf", "Serie 3", "Classe A"}
	mockFuelTypes     = []string{"Essence", "Diesel", "Hybride", "Électrique"}
	mockTransmissions = []string{"Manuelle", "Automatique"}
	mockBodyTypes     = []string{"Berline", "SUV", "Citadine", "Break"}
)

func (mockPlateAPI) Lookup(_ context.Context, plate string) (*PlateData, error) {
	seed := crc32.ChecksumIEEE([]byte(plate))

	engineSize := fmt.Sprintf("%.1fL", 1.0+float64(seed%21)/10)
	engineCode := fmt.Sprintf("ENG%d", 100+seed%900)
	fuel := mockFuelTypes[seed%uint32(len(mockFuelTypes))]
	transmission := mockTransmissions[seed%uint32(len(mockTransmissions))]
	body := mockBodyTypes[seed%uint32(len(mockBodyTypes))]
	vin := fmt.Sprintf("VIN%X", md5.Sum([]byte(plate)))[:17]

	idx := seed % uint32(len(mockMakes))
	return &PlateData{
		Make:         mockMakes[idx],
		Model:        mockModels[idx],
		Year:         2015 + int(seed%10),
		FuelType:     &fuel,
		EngineSize:   &engineSize,
		EngineCode:   &engineCode,
		Transmission: &transmission,
		BodyType:     &body,
		VIN:          &vin,
	}, nil
}
