// Package appdirs provides the local directories where the app stores user data.
package appdirs

import (
	"fmt"
	"os"
	"path/filepath"

	xappdirs "github.com/chasinglogic/appdirs"
)

const (
	appName        = "evefit"
	dbFileName     = "evefit.sqlite"
	keyFileName    = "token.key"
	logFileName    = "evefit.log"
	configFileName = "config.yaml"
)

// AppDirs represents the app's local directories for storing logs etc.
type AppDirs struct {
	Config string
	Data   string
	Log    string
}

// New returns the default directories of the current user.
func New() AppDirs {
	ad := xappdirs.New(appName)
	return AppDirs{
		Config: ad.UserConfig(),
		Data:   ad.UserData(),
		Log:    ad.UserLog(),
	}
}

// Init creates all directories which do not yet exist.
func (ad AppDirs) Init() error {
	for _, p := range ad.Folders() {
		if err := os.MkdirAll(p, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// Folders returns all directories.
func (ad AppDirs) Folders() []string {
	return []string{ad.Config, ad.Data, ad.Log}
}

// ConfigFile returns the path of the config file.
func (ad AppDirs) ConfigFile() string {
	return filepath.Join(ad.Config, configFileName)
}

// DSN returns the data source name of the database.
func (ad AppDirs) DSN() string {
	return fmt.Sprintf("file:%s", filepath.Join(ad.Data, dbFileName))
}

// KeyFile returns the path of the file with the key for encrypting refresh tokens.
func (ad AppDirs) KeyFile() string {
	return filepath.Join(ad.Data, keyFileName)
}

// LogFile returns the path of the log file.
func (ad AppDirs) LogFile() string {
	return filepath.Join(ad.Log, logFileName)
}

// DeleteAll deletes all directories including their content.
// This removes all stored characters.
func (ad AppDirs) DeleteAll() error {
	for _, p := range ad.Folders() {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}
