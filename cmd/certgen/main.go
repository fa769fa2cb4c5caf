package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/goserg/poolrating/internal/config"
)

const validYears = 10

var subject = pkix.Name{
	Organization: []string{"Pool Rating"},
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var configPath, ipFlag string
	flag.StringVar(&configPath, "config", "configs/server.toml", "path to the server config")
	flag.StringVar(&ipFlag, "ip", "", "ip the certificate is issued for")
	flag.Parse()

	cfg, err := config.New(configPath)
	if err != nil {
		return err
	}
	certFile, keyFile := cfg.Server.CertFile, cfg.Server.KeyFile
	if !cfg.Server.TLS() {
		certFile, keyFile = "cert.pem", "key.pem"
	}
	if exists(certFile) && exists(keyFile) {
		return errors.New("cert exists")
	}

	ips := []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	if ipFlag != "" {
		ip := net.ParseIP(ipFlag)
		if ip == nil {
			return fmt.Errorf("bad ip %q", ipFlag)
		}
		ips = []net.IP{ip}
	}

	ca, caKey, err := newCA()
	if err != nil {
		return err
	}
	certPEM, keyPEM, err := issue(ca, caKey, ips)
	if err != nil {
		return err
	}
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote %s and %s\n", certFile, keyFile)
	return nil
}

func newCA() (*x509.Certificate, *rsa.PrivateKey, error) {
	ca := &x509.Certificate{
		SerialNumber:          randomSerial(),
		Subject:               subject,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(validYears, 0, 0),
		IsCA:                  true,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	key, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return nil, nil, err
	}
	return ca, key, nil
}

// issue signs a server certificate for ips and returns it with its key, PEM encoded.
func issue(ca *x509.Certificate, caKey *rsa.PrivateKey, ips []net.IP) ([]byte, []byte, error) {
	cert := &x509.Certificate{
		SerialNumber: randomSerial(),
		Subject:      subject,
		IPAddresses:  ips,
		NotBefore:    time.Now(),
		NotAfter:     time.Now().AddDate(validYears, 0, 0),
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	key, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return nil, nil, err
	}
	der, err := x509.CreateCertificate(rand.Reader, cert, ca, &key.PublicKey, caKey)
	if err != nil {
		return nil, nil, err
	}
	certPEM, err := encode("CERTIFICATE", der)
	if err != nil {
		return nil, nil, err
	}
	keyPEM, err := encode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))
	if err != nil {
		return nil, nil, err
	}
	return certPEM, keyPEM, nil
}

func encode(typ string, b []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := pem.Encode(buf, &pem.Block{Type: typ, Bytes: b}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func randomSerial() *big.Int {
	i, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		panic(err)
	}
	return i
}
