// Command collimator is the interactive field workflow: load a survey
// configuration, calibrate the station, then read shots from the prompt
// and compute point coordinates until the operator is done.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"collimator/internal/config"
	"collimator/internal/export"
	"collimator/internal/survey"
)

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

// Residuals above this many degrees are highlighted in the report.
const residualWarnDeg = 0.5

func main() {
	configPath := flag.String("config", "config.json", "path to the survey configuration file")
	crsName := flag.String("crs", "", "CRS label stamped into GeoJSON exports")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	st, pts, err := cfg.Normalize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	cal, err := survey.Calibrate(st, pts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "calibration failed: %v\n", err)
		os.Exit(1)
	}
	renderCalibration(st, cal)

	var points []survey.ComputedPoint

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("shot> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line := strings.TrimSpace(input)
		if line == "" {
			break
		}

		switch {
		case strings.EqualFold(line, "help"):
			printHelp()
		case strings.EqualFold(line, "cal"):
			renderCalibration(st, cal)
		case strings.EqualFold(line, "points"):
			browsePoints(points)
		case strings.HasPrefix(line, "export "):
			writeFile(strings.TrimSpace(strings.TrimPrefix(line, "export ")), points, func(f *os.File) error {
				return export.WriteDelimited(f, points, export.Options{})
			})
		case strings.HasPrefix(line, "geojson "):
			writeFile(strings.TrimSpace(strings.TrimPrefix(line, "geojson ")), points, func(f *os.File) error {
				return export.WriteGeoJSON(f, points, *crsName, nil)
			})
		case strings.HasPrefix(line, "shp "):
			base := strings.TrimSpace(strings.TrimPrefix(line, "shp "))
			if len(points) == 0 {
				fmt.Println("No points to export yet.")
				continue
			}
			if err := export.WriteShapefile(base, points); err != nil {
				fmt.Fprintf(os.Stderr, "shapefile export failed: %v\n", err)
			} else {
				fmt.Printf("Wrote %d points to %s\n", len(points), base)
			}
		default:
			shot, err := parseShot(line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v (enter \"AH AV D\", or 'help')\n", err)
				continue
			}
			pt := survey.ComputePoint(st, cal, shot)
			pt.ID = fmt.Sprintf("P%d", len(points)+1)
			points = append(points, pt)
			fmt.Printf("%s  X=%.3f  Y=%.3f  Z=%.3f  (AH_corr=%.4f°, AV_corr=%.4f°)\n",
				pt.ID, pt.X, pt.Y, pt.Z, pt.AHCorr, pt.AVCorr)
		}
	}
}

func printHelp() {
	fmt.Println(`Enter a shot as three numbers: AH AV D (degrees, degrees, meters).
Decimal comma is accepted. Other commands:
  cal              reprint the calibration report
  points           browse computed points (arrow keys)
  export <file>    write delimited text
  geojson <file>   write GeoJSON
  shp <base>       write a shapefile
Blank line quits.`)
}

// parseShot reads an "AH AV D" triple with locale-tolerant numbers.
func parseShot(line string) (survey.ObservedShot, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return survey.ObservedShot{}, fmt.Errorf("expected 3 values, got %d", len(fields))
	}
	vals := make([]float64, 3)
	for i, f := range fields {
		v, err := config.ParseNum(f)
		if err != nil {
			return survey.ObservedShot{}, err
		}
		vals[i] = v
	}
	return survey.ObservedShot{AHObs: vals[0], AVObs: vals[1], DObs: vals[2]}, nil
}

func writeFile(path string, points []survey.ComputedPoint, write func(*os.File) error) {
	if len(points) == 0 {
		fmt.Println("No points to export yet.")
		return
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		return
	}
	defer f.Close()
	if err := write(f); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		return
	}
	fmt.Printf("Wrote %d points to %s\n", len(points), path)
}

// renderCalibration prints the per-point diagnostic table and the
// adjustment summary.
func renderCalibration(st survey.Station, cal survey.CalibrationResult) {
	warn := func(v float64) string {
		if v > residualWarnDeg || v < -residualWarnDeg {
			return colorRed
		}
		return colorGreen
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Station           : X=%.3f  Y=%.3f  Z=%.3f\n", st.X, st.Y, st.Z)
	fmt.Printf("Reference points  : %d\n\n", cal.NPoints)

	fmt.Printf("%-10s %10s %10s %10s %10s %10s\n", "Point", "AH_real", "AH_obs", "dAH", "dAV", "Dist_res")
	for _, d := range cal.Diagnostics {
		fmt.Printf("%-10s %10.4f %10.4f %s%10.4f%s %s%10.4f%s %10.3f\n",
			d.Name, d.AHReal, d.AHObs,
			warn(d.DAH), d.DAH, colorReset,
			warn(d.DAV), d.DAV, colorReset,
			d.DistRes)
	}

	before, after := survey.ResidualImprovement(cal)
	fmt.Printf("\nAdjustment AH     : %+.4f°\n", cal.AjusteAH)
	fmt.Printf("Adjustment AV     : %+.4f°\n", cal.AjusteAV)
	fmt.Printf("Mean |residual|   : %.4f° -> %.4f° after correction\n", before, after)
	fmt.Println(strings.Repeat("-", 80))
}
