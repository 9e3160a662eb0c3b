package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// loadPublicKey reads an RSA public key from a file:// URL or inline PEM.
func loadPublicKey(source string) (publicKey *rsa.PublicKey, err error) {
	var pemBytes []byte
	if strings.HasPrefix(strings.TrimSpace(source), "-----BEGIN") {
		pemBytes = []byte(source)
	} else {
		var publicKeyURL *url.URL
		publicKeyURL, err = url.Parse(source)
		if err != nil {
			err = fmt.Errorf("failed to parse public key as URL: %w", err)
			return
		}
		if publicKeyURL.Scheme != "file" {
			err = fmt.Errorf("unsupported public key source: %s", publicKeyURL.Scheme)
			return
		}
		if publicKeyURL.Path == "" {
			err = fmt.Errorf("public key url cannot have an empty path")
			return
		}
		pemBytes, err = os.ReadFile(publicKeyURL.Path)
		if err != nil {
			return
		}
	}

	pemBlock, _ := pem.Decode(pemBytes)
	if pemBlock == nil {
		err = fmt.Errorf("public key is not PEM encoded")
		return
	}
	switch pemBlock.Type {
	case "RSA PUBLIC KEY":
		publicKey, err = x509.ParsePKCS1PublicKey(pemBlock.Bytes)
	case "PUBLIC KEY":
		var key any
		key, err = x509.ParsePKIXPublicKey(pemBlock.Bytes)
		if err != nil {
			return
		}
		var ok bool
		publicKey, ok = key.(*rsa.PublicKey)
		if !ok {
			err = fmt.Errorf("public key is not an RSA key")
		}
	default:
		err = fmt.Errorf("invalid public key of type %s", pemBlock.Type)
	}
	return
}
