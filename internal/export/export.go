package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taskminder/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName  = "Tasks"
	timeLayout = "2006-01-02 15:04"
)

var headers = []string{"Name", "Interval", "Enabled", "Last run", "Next due", "Due now"}

// ToExcel writes the task list to an .xlsx file at path and returns the path.
// Timestamps are rendered in now's location.
func ToExcel(tasks []models.Task, path string, now time.Time) (string, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("error creating export directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
		_ = f.SetCellStyle(SheetName, cell, cell, headerStyle)
	}

	dueStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE4D6"}, Pattern: 1},
	})

	for i, task := range tasks {
		row := i + 2
		values := rowValues(task, now)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		if task.ShouldRun(now) {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(SheetName, first, last, dueStyle)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 30)
	_ = f.SetColWidth(SheetName, "B", "F", 18)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func rowValues(task models.Task, now time.Time) []string {
	enabled := "no"
	if task.Enabled {
		enabled = "yes"
	}
	due := "no"
	if task.ShouldRun(now) {
		due = "yes"
	}

	lastRun, nextDue := "never", ""
	if task.LastRun != nil {
		lastRun = task.LastRun.In(now.Location()).Format(timeLayout)
		nextDue = task.LastRun.Add(task.Interval.Period()).In(now.Location()).Format(timeLayout)
	}
	return []string{task.Name, task.Interval.String(), enabled, lastRun, nextDue, due}
}
