package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/jdh4601/ClosetBot/internal/store"
)

const historyTimeLayout = "2006-01-02 15:04"

// HistoryTable lists stored jobs in the order given.
func HistoryTable(jobs []*store.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		progress := "-"
		if j.Progress != nil {
			progress = strconv.Itoa(*j.Progress) + "%"
		}
		cached := ""
		if j.HasResults {
			cached = "yes"
		}
		rows = append(rows, []string{
			j.ID,
			"@" + j.Brand,
			strings.Join(j.Candidates, ", "),
			string(j.State),
			progress,
			cached,
			formatTime(j.SubmittedAt),
			j.ErrorMessage,
		})
	}

	return renderTable(
		[]string{"Job", "Brand", "Candidates", "State", "Progress", "Cached", "Submitted", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeLayout)
}
