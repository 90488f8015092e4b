// Package security holds the TLS settings of httpkit transports.
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/etc/billing/ca.pem",
//	    CertFile: "/etc/billing/client.pem",
//	    KeyFile:  "/etc/billing/client-key.pem",
//	}
//	tlsConfig, err := cfg.Build()
package security
