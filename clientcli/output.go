package clientcli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Formatter formats results for output.
type Formatter interface {
	FormatFolder(w io.Writer, folder *Folder) error
	FormatImages(w io.Writer, images []Image) error
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatDownload(w io.Writer, result *DownloadResult) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatFolder formats a folder as human-readable text. In quiet mode only
// the id is printed.
func (f *HumanFormatter) FormatFolder(w io.Writer, folder *Folder) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, folder.ID)
		return nil
	}

	_, _ = fmt.Fprintf(w, "ID:          %s\n", folder.ID)
	_, _ = fmt.Fprintf(w, "Name:        %s\n", folder.Name)
	_, _ = fmt.Fprintf(w, "Protected:   %s\n", yesNo(folder.HasPassword))
	_, _ = fmt.Fprintf(w, "Images:      %d\n", folder.ImageCount)
	_, _ = fmt.Fprintf(w, "Created:     %s\n", folder.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if folder.LastUploadAt != nil {
		_, _ = fmt.Fprintf(w, "Last upload: %s\n", folder.LastUploadAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// FormatImages formats a folder listing as human-readable text.
func (f *HumanFormatter) FormatImages(w io.Writer, images []Image) error {
	if len(images) == 0 {
		_, _ = fmt.Fprintln(w, "No images found")
		return nil
	}

	if f.Quiet {
		for i := range images {
			_, _ = fmt.Fprintln(w, images[i].Name)
		}
		return nil
	}

	// Calculate column widths
	maxNameLen := 4 // "NAME"
	for i := range images {
		if len(images[i].Name) > maxNameLen {
			maxNameLen = len(images[i].Name)
		}
	}
	if maxNameLen > 60 {
		maxNameLen = 60
	}

	// Print header
	_, _ = fmt.Fprintf(w, "%-*s  %-10s  %10s  %s\n", maxNameLen, "NAME", "TYPE", "SIZE", "CREATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 19))

	var total int64
	for i := range images {
		img := &images[i]
		name := img.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %-10s  %10s  %s\n",
			maxNameLen,
			name,
			strings.TrimPrefix(img.ContentType, "image/"),
			formatSize(img.Size),
			img.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		)
		total += img.Size
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\n%d image(s) (%s total)\n", len(images), formatSize(total))
	return nil
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s -> %s (%s)\n", r.LocalPath, r.Name, formatSize(r.Size))
		}
	}
	return nil
}

// FormatDownload formats download result as human-readable text.
func (f *HumanFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	if !f.Quiet {
		if result.LocalPath == "-" {
			_, _ = fmt.Fprintf(w, "Downloaded: %s (%s)\n", result.Name, formatSize(result.Size))
		} else {
			_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", result.Name, result.LocalPath, formatSize(result.Size))
		}
	}
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.Name, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.Name)
		}
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		_, _ = fmt.Fprintf(w, "Retry in %s\n", apiErr.RetryAfter.Round(time.Second))
	}
	return nil
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	// Calculate column widths
	maxNameLen := 4 // "NAME"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}

	// Print header
	_, _ = fmt.Fprintf(w, "  %-*s  %s\n", maxNameLen, "NAME", "ENDPOINT")
	_, _ = fmt.Fprintf(w, "  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 30))

	// Print profiles
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %s\n", marker, maxNameLen, name, p.Endpoint)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatFolder formats a folder as JSON.
func (f *JSONFormatter) FormatFolder(w io.Writer, folder *Folder) error {
	return writeJSON(w, folder)
}

// FormatImages formats a folder listing as JSON.
func (f *JSONFormatter) FormatImages(w io.Writer, images []Image) error {
	if images == nil {
		images = []Image{}
	}
	return writeJSON(w, struct {
		Items []Image `json:"items"`
	}{Items: images})
}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		LocalPath   string `json:"local_path"`
		Name        string `json:"name,omitempty"`
		Key         string `json:"key,omitempty"`
		ContentType string `json:"content_type,omitempty"`
		Size        int64  `json:"size,omitempty"`
		CreatedAt   string `json:"created_at,omitempty"`
		Error       string `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{LocalPath: r.LocalPath}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.Name = r.Name
			jr.Key = r.Key
			jr.ContentType = r.ContentType
			jr.Size = r.Size
			jr.CreatedAt = r.CreatedAt.Format(time.RFC3339)
		}
		output[i] = jr
	}

	return writeJSON(w, output)
}

// FormatDownload formats download result as JSON.
func (f *JSONFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		Name    string `json:"name"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			Name:    r.Name,
			Deleted: r.Deleted,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error             string `json:"error"`
		Code              string `json:"code,omitempty"`
		RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	}{
		Error: err.Error(),
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		output.Code = apiErr.Code
		output.RetryAfterSeconds = int(apiErr.RetryAfter / time.Second)
	}

	return writeJSON(w, output)
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	output := struct {
		Profiles []Profile `json:"profiles"`
	}{
		Profiles: make([]Profile, len(profiles)),
	}

	for i := range profiles {
		p := profiles[i]
		p.Default = p.Name == defaultName
		output.Profiles[i] = p
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool) error {
	profile.Default = isDefault
	return writeJSON(w, profile)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
