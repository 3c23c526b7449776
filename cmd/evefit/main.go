// Evefit is a command line tool for managing the ship fittings of Eve Online characters.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ErikKalkoken/evefit/internal/appdirs"
	"github.com/ErikKalkoken/evefit/internal/characterservice"
	"github.com/ErikKalkoken/evefit/internal/esi"
	"github.com/ErikKalkoken/evefit/internal/eveauth"
	"github.com/ErikKalkoken/evefit/internal/httpclient"
	"github.com/ErikKalkoken/evefit/internal/settings"
	"github.com/ErikKalkoken/evefit/internal/storage"
	"github.com/ErikKalkoken/evefit/internal/tokencipher"
)

// defined flags
var (
	levelFlag     logLevelFlag
	characterFlag = flag.Int("character", 0, "ID of the character to use. Default is the first character")
	configFlag    = flag.String("config", "", "Path to the config file. Default is in the user's config directory")
	logFileFlag   = flag.Bool("logfile", false, "Write logs to a file instead of the console")
)

func init() {
	levelFlag.value = slog.LevelInfo
	flag.Var(&levelFlag, "loglevel", "set log level. Overrides the config file")
}

const usageText = `Usage: evefit [flags] <command> [args]

Commands:
  login                   authorize a new character
  characters              list all characters
  skills [<skill ID>...]  show skills and security status of a character
  fittings                list the fittings of a character
  create-fitting <file>   create a fitting from a JSON file
  delete-fitting <id>     delete a fitting
  remove                  remove a character
  show-dirs               show directories where user data is stored
  uninstall               delete all user data

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()
	ad := appdirs.New()
	switch flag.Arg(0) {
	case "show-dirs":
		fmt.Printf("Config: %s\n", ad.Config)
		fmt.Printf("Data: %s\n", ad.Data)
		fmt.Printf("Logs: %s\n", ad.Log)
		return
	case "uninstall":
		uninstall(ad)
		return
	}
	if err := ad.Init(); err != nil {
		log.Fatal(err)
	}
	configPath := *configFlag
	if configPath == "" {
		configPath = ad.ConfigFile()
	}
	st, err := settings.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if levelFlag.isSet {
		slog.SetLogLoggerLevel(levelFlag.value)
	} else {
		l, err := st.SlogLevel()
		if err != nil {
			log.Fatal(err)
		}
		slog.SetLogLoggerLevel(l)
	}
	if *logFileFlag {
		log.SetOutput(&lumberjack.Logger{
			Filename:   ad.LogFile(),
			MaxSize:    50, // megabytes
			MaxBackups: 3,
		})
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, ad, st, flag.Args()); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, ad appdirs.AppDirs, st settings.Settings, args []string) error {
	cipher, err := tokencipher.LoadOrCreateKey(ad.KeyFile())
	if err != nil {
		return err
	}
	db, err := storage.ConnectDB(ad.DSN(), true)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()
	transport, err := st.HTTPTransport()
	if err != nil {
		return err
	}
	sso, err := eveauth.NewClient(eveauth.Config{
		AuthorizeURL: st.AuthorizeURL(),
		Cipher:       cipher,
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		DeviceURL:    st.DeviceURL,
		HTTPClient: httpclient.NewStandard(httpclient.Config{
			Transport:    transport,
			RedactedURLs: []string{st.TokenURL()},
		}),
		Mode:        st.Mode(),
		RedirectURI: st.RedirectURI,
		TokenURL:    st.TokenURL(),
	})
	if err != nil {
		return err
	}
	cs, err := characterservice.New(characterservice.Params{
		ESIConfig: esi.Config{
			BaseURL:           st.ESIBaseURL,
			Origin:            st.Origin,
			RequestsPerSecond: st.RequestsPerSecond,
			Timeout:           st.TimeoutDuration(),
			Transport:         transport,
		},
		SSOService: sso,
		Storage:    storage.New(db),
	})
	if err != nil {
		return err
	}
	c := &cli{
		characterID: int32(*characterFlag),
		cs:          cs,
		in:          os.Stdin,
		out:         os.Stdout,
	}
	return c.run(ctx, args)
}

func uninstall(ad appdirs.AppDirs) {
	fmt.Print("Are you sure you want to delete all user files including all characters (y/N)? ")
	var input string
	fmt.Scanln(&input)
	if strings.ToLower(input) != "y" {
		fmt.Println("Aborted")
		return
	}
	if err := ad.DeleteAll(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("All user files deleted")
}
