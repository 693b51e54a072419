package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig is the layout of the JSON config file.
type StructuredJSONConfig struct {
	App struct {
		Name           string `json:"name"`
		ClientName     string `json:"client_name"`
		ConsumerKey    string `json:"consumer_key"`
		ConsumerSecret string `json:"consumer_secret"`
		DeveloperToken string `json:"developer_token"`
	} `json:"app,omitempty"`

	Adapter struct {
		Host              string   `json:"host"`
		RequestTimeout    Duration `json:"request_timeout"`
		RequestsPerSecond float64  `json:"requests_per_second"`
		Burst             int      `json:"burst"`
	} `json:"adapter,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		SettingsPath string `json:"settings_path"`
		Secrets      struct {
			Backend    string `json:"backend"`
			FilePath   string `json:"file_path"`
			Passphrase string `json:"passphrase"`
		} `json:"secrets,omitempty"`
	} `json:"storage,omitempty"`

	Sync struct {
		MaxChunkEntries      int      `json:"max_chunk_entries"`
		CachePageSize        int      `json:"cache_page_size"`
		DownloadThumbnails   bool     `json:"download_thumbnails"`
		ThumbnailDir         string   `json:"thumbnail_dir"`
		AccountLimitsRefresh Duration `json:"account_limits_refresh"`
		Interval             Duration `json:"interval"`
	} `json:"sync,omitempty"`

	Log struct {
		Path    string `json:"path"`
		Level   string `json:"level"`
		Console bool   `json:"console"`
	} `json:"log,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Name:           jsonCfg.App.Name,
			ClientName:     jsonCfg.App.ClientName,
			ConsumerKey:    jsonCfg.App.ConsumerKey,
			ConsumerSecret: jsonCfg.App.ConsumerSecret,
			DeveloperToken: jsonCfg.App.DeveloperToken,
		},
		Adapter: Adapter{
			Host:              jsonCfg.Adapter.Host,
			RequestTimeout:    time.Duration(jsonCfg.Adapter.RequestTimeout),
			RequestsPerSecond: jsonCfg.Adapter.RequestsPerSecond,
			Burst:             jsonCfg.Adapter.Burst,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
			SettingsPath: jsonCfg.Storage.SettingsPath,
			Secrets: Secrets{
				Backend:    jsonCfg.Storage.Secrets.Backend,
				FilePath:   jsonCfg.Storage.Secrets.FilePath,
				Passphrase: jsonCfg.Storage.Secrets.Passphrase,
			},
		},
		Sync: Sync{
			MaxChunkEntries:      jsonCfg.Sync.MaxChunkEntries,
			CachePageSize:        jsonCfg.Sync.CachePageSize,
			DownloadThumbnails:   jsonCfg.Sync.DownloadThumbnails,
			ThumbnailDir:         jsonCfg.Sync.ThumbnailDir,
			AccountLimitsRefresh: time.Duration(jsonCfg.Sync.AccountLimitsRefresh),
			Interval:             time.Duration(jsonCfg.Sync.Interval),
		},
		Log: Log{
			Path:    jsonCfg.Log.Path,
			Level:   jsonCfg.Log.Level,
			Console: jsonCfg.Log.Console,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
