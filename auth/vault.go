// Package auth protects the upload API with signed tokens. Protection is
// only active if a signing key is configured.
package auth

import (
	"encoding/json"
	"io/ioutil"
	"sync"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/roboticeyes/arpreview/event"
)

var log = event.Log

// Vault stores all secrets which are necessary
type Vault struct {
	JwtSigningKey string `json:"JwtSigningKey"`
}

// Keys holds the current vault content. If created from a file, the file is
// watched and reloaded whenever it changes.
type Keys struct {
	vaultFile string
	vault     Vault
	watch     *watcher.Watcher
	mutex     sync.RWMutex // used for accessing the vault in parallel
}

// StaticKeys returns keys which never change. An empty signing key disables
// token validation.
func StaticKeys(signingKey string) *Keys {
	return &Keys{vault: Vault{JwtSigningKey: signingKey}}
}

// LoadKeys reads the vault file and starts watching it with the given poll
// interval.
func LoadKeys(vaultFile string, interval time.Duration) (*Keys, error) {
	k := &Keys{vaultFile: vaultFile}
	if err := k.loadVault(); err != nil {
		return nil, err
	}

	k.watch = watcher.New()
	k.watch.FilterOps(watcher.Write, watcher.Create)
	if err := k.watch.Add(vaultFile); err != nil {
		return nil, err
	}
	go k.watchVaultFile(interval)
	return k, nil
}

// SigningKey returns the current key for validating tokens
func (k *Keys) SigningKey() string {
	k.mutex.RLock()
	defer k.mutex.RUnlock()
	return k.vault.JwtSigningKey
}

// Enabled reports whether token validation is active
func (k *Keys) Enabled() bool {
	return k.SigningKey() != ""
}

// Close stops watching the vault file
func (k *Keys) Close() {
	if k.watch != nil {
		k.watch.Close()
	}
}

func (k *Keys) loadVault() error {
	log.Println("Loading vault file", k.vaultFile)
	buf, err := ioutil.ReadFile(k.vaultFile)
	if err != nil {
		return err
	}

	var vault Vault
	if err := json.Unmarshal(buf, &vault); err != nil {
		return err
	}

	k.mutex.Lock()
	k.vault = vault
	k.mutex.Unlock()
	return nil
}

func (k *Keys) watchVaultFile(interval time.Duration) {

	go func() {
		for {
			select {
			case <-k.watch.Event:
				log.Println("Vault file got changed, reload keys")
				if err := k.loadVault(); err != nil {
					log.Error("Cannot reload vault file: ", err)
				}
			case err := <-k.watch.Error:
				if err == watcher.ErrWatchedFileDeleted {
					// Usually happens because the watcher looks for the file as the OS is updating it
					continue
				}
				log.Error("Vault file cannot be watched: ", err)
			case <-k.watch.Closed:
				return
			}
		}
	}()

	if err := k.watch.Start(interval); err != nil {
		log.Error(err)
	}
}
