package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/roamvest/scout-api/internal/drivetime"
	"github.com/roamvest/scout-api/pkg/geo"
)

var (
	driveFromLat float64
	driveFromLng float64
	driveToLat   float64
	driveToLng   float64
)

var drivetimeCmd = &cobra.Command{
	Use:   "drivetime",
	Short: "Look up the driving time between two points",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		if cfg.Mapbox.SecretToken == "" {
			return eris.New("mapbox token is not configured")
		}

		svc := buildServices(cfg)
		origin := geo.Point{Lat: driveFromLat, Lng: driveFromLng}
		destination := geo.Point{Lat: driveToLat, Lng: driveToLng}

		est, err := svc.drive.DrivingTime(cmd.Context(), origin, destination)
		if err != nil {
			if errors.Is(err, drivetime.ErrNoRoute) {
				return eris.New("no drivable route between the points")
			}
			return eris.Wrap(err, "driving time")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	},
}

func init() {
	drivetimeCmd.Flags().Float64Var(&driveFromLat, "from-lat", 0, "origin latitude")
	drivetimeCmd.Flags().Float64Var(&driveFromLng, "from-lng", 0, "origin longitude")
	drivetimeCmd.Flags().Float64Var(&driveToLat, "to-lat", 0, "destination latitude")
	drivetimeCmd.Flags().Float64Var(&driveToLng, "to-lng", 0, "destination longitude")
	for _, f := range []string{"from-lat", "from-lng", "to-lat", "to-lng"} {
		_ = drivetimeCmd.MarkFlagRequired(f)
	}
	rootCmd.AddCommand(drivetimeCmd)
}
