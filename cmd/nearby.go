package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/roamvest/scout-api/pkg/geo"
)

var (
	nearbyLat    float64
	nearbyLng    float64
	nearbyRadius float64
	nearbyEnrich bool
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Discover nearby locations around a point and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		if cfg.Mapbox.SecretToken == "" {
			return eris.New("mapbox token is not configured")
		}

		radius := nearbyRadius
		if radius == 0 {
			radius = cfg.Discovery.DefaultRadiusKm
		}

		svc := buildServices(cfg)
		origin := geo.Point{Lat: nearbyLat, Lng: nearbyLng}

		result, err := svc.discovery.FindNearby(cmd.Context(), origin, radius)
		if err != nil {
			return eris.Wrap(err, "discover nearby")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if !nearbyEnrich {
			return enc.Encode(result.Locations)
		}

		opportunities, err := svc.enrich.Enrich(cmd.Context(), result.Locations, origin,
			enrichFilters())
		if err != nil {
			return eris.Wrap(err, "enrich opportunities")
		}
		return enc.Encode(opportunities)
	},
}

func init() {
	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "origin latitude")
	nearbyCmd.Flags().Float64Var(&nearbyLng, "lng", 0, "origin longitude")
	nearbyCmd.Flags().Float64Var(&nearbyRadius, "radius", 0, "search radius in km (default from config)")
	nearbyCmd.Flags().BoolVar(&nearbyEnrich, "enrich", false, "attach driving times and preview metrics")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(nearbyCmd)
}
