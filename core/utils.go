package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DayFormat is the wire format for calendar days. All attendance logic works
// at day granularity; full timestamps are never exchanged.
const DayFormat = "2006-01-02"

// Today returns the current calendar day in DayFormat (UTC).
func Today() string {
	return time.Now().UTC().Format(DayFormat)
}

// ParseDay checks that `day` is a valid DayFormat calendar day.
func ParseDay(day string) (string, error) {
	t, err := time.Parse(DayFormat, day)
	if err != nil {
		return "", err
	}
	return t.Format(DayFormat), nil
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd tries to find the project root "mahudhurio".
// go-test changes the working directory to the test package being run during tests... this breaks our code...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
// this is a temporary fix for now :(
func Getwd() string {
	root := "mahudhurio"
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(currDir); err == nil {
			dirBase := filepath.Base(currDir)
			if dirBase == root && fi.IsDir() {
				return currDir
			}
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			log.Fatal("project root not found")
		}
		currDir = newDir
	}
}
