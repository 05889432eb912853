package erddap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for dataset URLs that are not absolute http(s)
// URLs.
var ErrInvalidURL = errors.New("invalid dataset url")

// InfoURL returns the info table URL for a tabledap or griddap dataset URL,
// e.g. .../erddap/tabledap/CGBN_Canada.html becomes
// .../erddap/info/CGBN_Canada/index.csv. URLs already ending in /index.csv
// are returned unchanged.
func InfoURL(dataURL string) string {
	if strings.HasSuffix(dataURL, "/index.csv") {
		return dataURL
	}
	u := strings.TrimSuffix(dataURL, ".html")
	u = strings.Replace(u, "/tabledap/", "/info/", 1)
	u = strings.Replace(u, "/griddap/", "/info/", 1)
	return u + "/index.csv"
}

// DataURL strips a trailing .html so that file type extensions can be
// appended to the result.
func DataURL(dataURL string) string {
	return strings.TrimSuffix(dataURL, ".html")
}

// DepthQueryURL returns the URL of the distinct, ordered values of the
// vertical variable.
func DepthQueryURL(dataURL, depthVariable string) string {
	return DataURL(dataURL) + ".csv?" + depthVariable + "&distinct()&orderBy(%22" + depthVariable + "%22)"
}

// ObservationsURL returns the CSV data URL for an ERDDAP query string such
// as "time,ID,QS&ID=~\"A|B\"". The query is sent as given.
func ObservationsURL(dataURL, query string) string {
	return DataURL(dataURL) + ".csv?" + strings.TrimPrefix(query, "?")
}

func validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
