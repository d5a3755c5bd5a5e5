package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

// StorageMode selects which GCS endpoint the media store talks to.
type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

const (
	StorageModeEnv         = "MEDIA_STORAGE_MODE"
	StorageEmulatorHostEnv = "STORAGE_EMULATOR_HOST"
)

// StorageModeError describes a media storage setting that cannot be used at startup.
type StorageModeError struct {
	Code         string
	Mode         string
	EmulatorHost string
	Message      string
}

func (e *StorageModeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s (mode=%q emulator_host=%q)", e.Code, e.Message, e.Mode, e.EmulatorHost)
}

// ResolveStorageMode turns raw settings into a mode and a normalized emulator host.
// An empty mode means gcs unless an emulator host is set.
func ResolveStorageMode(rawMode, rawEmulatorHost string) (StorageMode, string, error) {
	host := strings.TrimRight(strings.TrimSpace(rawEmulatorHost), "/")
	mode := StorageMode(strings.ToLower(strings.TrimSpace(rawMode)))
	if mode == "" {
		mode = StorageModeGCS
		if host != "" {
			mode = StorageModeGCSEmulator
		}
	}

	switch mode {
	case StorageModeGCS:
		if host != "" {
			return "", "", &StorageModeError{
				Code:         "emulator_host_unexpected",
				Mode:         string(mode),
				EmulatorHost: host,
				Message:      StorageEmulatorHostEnv + " must be empty in gcs mode",
			}
		}
		return mode, "", nil
	case StorageModeGCSEmulator:
		if host == "" {
			return "", "", &StorageModeError{
				Code:    "emulator_host_missing",
				Mode:    string(mode),
				Message: StorageEmulatorHostEnv + " is required in gcs_emulator mode",
			}
		}
		u, err := url.Parse(host)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", "", &StorageModeError{
				Code:         "emulator_host_invalid",
				Mode:         string(mode),
				EmulatorHost: host,
				Message:      StorageEmulatorHostEnv + " must be an absolute http(s) URL",
			}
		}
		return mode, host, nil
	default:
		return "", "", &StorageModeError{
			Code:         "mode_invalid",
			Mode:         string(mode),
			EmulatorHost: host,
			Message:      StorageModeEnv + " must be gcs or gcs_emulator",
		}
	}
}
