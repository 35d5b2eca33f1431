package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/domstorage"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// AuthInfo is the persisted login state of a page: its cookies and the
// local storage of the page origin.
type AuthInfo struct {
	Origin       string                 `json:"origin"`
	Cookies      []*network.CookieParam `json:"cookies"`
	LocalStorage map[string]string      `json:"local_storage"`
}

// CookieParams converts live cookies into parameters that can be set again.
func CookieParams(cookies []*network.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if !c.Session && c.Expires > 0 {
			sec := int64(c.Expires)
			expires := cdp.TimeSinceEpoch(time.Unix(sec, int64((c.Expires-float64(sec))*1e9)))
			p.Expires = &expires
		}
		params = append(params, p)
	}
	return params
}

func storageID(origin string) (*domstorage.StorageID, error) {
	parsedUrl, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}
	if parsedUrl.Scheme == "" || parsedUrl.Host == "" {
		return nil, fmt.Errorf("no storage origin for %q", origin)
	}
	return &domstorage.StorageID{
		SecurityOrigin: fmt.Sprintf("%s://%s", parsedUrl.Scheme, parsedUrl.Host),
		IsLocalStorage: true,
	}, nil
}

// SaveState writes the cookies and local storage of the current page to path.
func (s *Session) SaveState(ctx context.Context, path string) error {
	origin, err := s.CurrentURL(ctx)
	if err != nil {
		return err
	}
	auth := AuthInfo{Origin: origin, LocalStorage: make(map[string]string)}

	err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to get cookies: %w", err)
		}
		auth.Cookies = CookieParams(cookies)

		id, err := storageID(origin)
		if err != nil {
			log.Debugf("Skipping local storage: %v", err)
			return nil
		}
		items, err := domstorage.GetDOMStorageItems(id).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to get localStorage: %w", err)
		}
		for _, item := range items {
			if len(item) == 2 {
				auth.LocalStorage[item[0]] = item[1]
			}
		}
		return nil
	}))
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err = os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing auth info to file %s: %w", path, err)
	}
	log.Debugf("Successfully writing auth info to file %s", path)
	return nil
}

// LoadState restores cookies and local storage saved by SaveState. A missing file is not an error.
func (s *Session) LoadState(ctx context.Context, path string) error {
	authData, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debugf("No auth info at %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading auth info from file %s: %w", path, err)
	}
	var auth AuthInfo
	if err = json.Unmarshal(authData, &auth); err != nil {
		return fmt.Errorf("error unmarshalling auth info from JSON: %w", err)
	}

	err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if len(auth.Cookies) > 0 {
			if err := network.SetCookies(auth.Cookies).Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookies: %w", err)
			}
		}
		if len(auth.LocalStorage) == 0 {
			return nil
		}
		id, err := storageID(auth.Origin)
		if err != nil {
			return err
		}
		for key, value := range auth.LocalStorage {
			if err = domstorage.SetDOMStorageItem(id, key, value).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return err
	}
	log.Debugf("Successfully loaded auth info from file %s", path)
	return nil
}
