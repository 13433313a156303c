/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/suparena/familystore/errors"
)

// ConnectionInfo is the parsed form of a DynamoDB connection string:
//
//	Region=us-east-1;Endpoint=http://localhost:8000;AccessKey=...;SecretKey=...
//
// Every key is optional. Missing credentials fall back to the default AWS
// credential chain.
type ConnectionInfo struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ParseConnectionString parses semicolon separated Key=Value pairs. Keys are
// case-insensitive.
func ParseConnectionString(s string) (ConnectionInfo, error) {
	var info ConnectionInfo
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return ConnectionInfo{}, errors.NewValidationError("connection_string", fmt.Sprintf("segment %q is not Key=Value", part))
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "region":
			info.Region = value
		case "endpoint":
			info.Endpoint = value
		case "accesskey":
			info.AccessKey = value
		case "secretkey":
			info.SecretKey = value
		default:
			return ConnectionInfo{}, errors.NewValidationError("connection_string", fmt.Sprintf("unknown key %q", key))
		}
	}
	if (info.AccessKey == "") != (info.SecretKey == "") {
		return ConnectionInfo{}, errors.NewValidationError("connection_string", "AccessKey and SecretKey must be set together")
	}
	return info, nil
}

// String renders the connection info with the secret redacted.
func (c ConnectionInfo) String() string {
	secret := ""
	if c.SecretKey != "" {
		secret = "***"
	}
	return fmt.Sprintf("Region=%s;Endpoint=%s;AccessKey=%s;SecretKey=%s", c.Region, c.Endpoint, c.AccessKey, secret)
}
