package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"

	"collimator/internal/survey"
)

// browsePoints lets the operator move through the computed points with the
// arrow keys and press Enter to see a point in full. Esc or Ctrl-C exits.
func browsePoints(points []survey.ComputedPoint) {
	if len(points) == 0 {
		fmt.Println("No points computed yet.")
		return
	}

	lines := make([]string, len(points))
	for i, p := range points {
		lines[i] = fmt.Sprintf("%-6s X=%12.3f  Y=%12.3f  Z=%10.3f", p.ID, p.X, p.Y, p.Z)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Not a terminal; print the list and move on.
		for _, l := range lines {
			fmt.Println(l)
		}
		return
	}
	defer term.Restore(fd, oldState)

	reader := bufio.NewReader(os.Stdin)
	selected := 0

	redraw := func() {
		fmt.Print("\033[H\033[2J")
		for i, l := range lines {
			prefix := "  "
			if i == selected {
				prefix = "> "
			}
			fmt.Print(prefix + l + "\r\n")
		}
		fmt.Print("(↑/↓ to navigate, Enter for details, Esc to quit)\r\n")
	}

	redraw()

	for {
		b1, err := reader.ReadByte()
		if err != nil {
			return
		}

		switch b1 {
		case 27: // ESC or CSI sequence
			if reader.Buffered() == 0 {
				fmt.Print("\r\n")
				return
			}
			b2, _ := reader.ReadByte()
			if b2 != '[' || reader.Buffered() == 0 {
				continue
			}
			b3, _ := reader.ReadByte()
			switch b3 {
			case 'A': // up
				if selected > 0 {
					selected--
					redraw()
				}
			case 'B': // down
				if selected < len(points)-1 {
					selected++
					redraw()
				}
			}
		case '\r', '\n': // Enter: leave raw mode while printing details
			term.Restore(fd, oldState)
			fmt.Println()
			renderPoint(points[selected])

			fmt.Print("\n(press Enter to return)")
			_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')

			oldState, err = term.MakeRaw(fd)
			if err != nil {
				return
			}
			reader = bufio.NewReader(os.Stdin)
			redraw()
		case 3: // Ctrl-C
			fmt.Print("\r\n")
			return
		}
	}
}

func renderPoint(p survey.ComputedPoint) {
	fmt.Printf("Point             : %s\n", p.ID)
	fmt.Printf("Coordinate        : X=%.3f  Y=%.3f  Z=%.3f\n", p.X, p.Y, p.Z)
	fmt.Printf("Observed          : AH=%.4f°  AV=%.4f°  D=%.3f m\n", p.AHObs, p.AVObs, p.DObs)
	fmt.Printf("Corrected         : AH=%.4f°  AV=%.4f°\n", p.AHCorr, p.AVCorr)
}
