package safety

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// listFiles maps categories to wordlist file names inside the wordlist
// directory. Lines starting with '#' are comments.
var listFiles = map[Category]string{
	CategoryPrivacy:     "privacy.txt",
	CategorySensitivity: "sensitivity.txt",
	CategoryOffensive:   "offensive.txt",
	CategorySuicide:     "suicide.txt",
}

// LoadDir replaces the checker's lists with the wordlist files found in dir.
// Missing files keep the current list for their category.
func (c *Checker) LoadDir(dir string) error {
	for cat, name := range listFiles {
		phrases, err := readList(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("loading %s wordlist: %w", cat, err)
		}
		c.SetList(cat, phrases)
	}
	return nil
}

// Watch reloads wordlists whenever a file in dir changes. It blocks until
// stop is closed; run it on its own goroutine.
func (c *Checker) Watch(dir string, stop <-chan struct{}, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating wordlist watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := c.LoadDir(dir); err != nil {
				logger.Warn("wordlist reload failed", zap.Error(err))
				continue
			}
			logger.Info("wordlists reloaded", zap.String("trigger", event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("wordlist watcher error", zap.Error(err))
		}
	}
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var phrases []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	return phrases, scanner.Err()
}
