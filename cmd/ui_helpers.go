package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"atomicgo.dev/cursor"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startInlineSpinner animates frames followed by text on the current line of w
// until the returned function is called, which also clears the line.
func startInlineSpinner(w io.Writer, text string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text)
			select {
			case <-stop:
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}

// areaSpinner redraws a status line produced by text in a pterm area.
type areaSpinner struct {
	area *pterm.AreaPrinter
	stop chan struct{}
	wg   sync.WaitGroup
}

// startAreaSpinner hides the cursor and starts redrawing text every interval.
// It returns nil when the area cannot be started; stop is safe on nil.
func startAreaSpinner(text func() string, interval time.Duration) *areaSpinner {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return nil
	}
	s := &areaSpinner{area: area, stop: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text()))
				i++
			}
		}
	}()
	return s
}

func (s *areaSpinner) Stop() {
	if s == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	_ = s.area.Stop()
	cursor.Show()
}
