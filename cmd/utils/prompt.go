// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

var (
	stdinOnce   sync.Once
	stdinReader *bufio.Reader
)

// GetPassPhrase displays the given text(prompt) to the user and requests some
// textual data to be entered, but one which must not be echoed out into the
// terminal. The method returns the input provided by the user.
func GetPassPhrase(text string, confirmation bool) string {
	if text != "" {
		fmt.Fprintln(os.Stderr, text)
	}
	password, err := PromptPassword("Password: ")
	if err != nil {
		Fatalf("Failed to read password: %v", err)
	}
	if confirmation {
		confirm, err := PromptPassword("Repeat password: ")
		if err != nil {
			Fatalf("Failed to read password confirmation: %v", err)
		}
		if password != confirm {
			Fatalf("%v", ErrPasswordMismatch)
		}
	}
	return password
}

// GetPassPhraseWithList retrieves the password associated with an account,
// either fetched from a list of preloaded passphrases, or requested
// interactively from the user.
func GetPassPhraseWithList(text string, confirmation bool, index int, passwords []string) string {
	if len(passwords) > 0 {
		if index < len(passwords) {
			return passwords[index]
		}
		return passwords[len(passwords)-1]
	}
	return GetPassPhrase(text, confirmation)
}

// PromptPassword reads a password from stdin without echo when stdin is a
// terminal. Otherwise the password is read as a plain line.
func PromptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	fmt.Fprintln(os.Stderr, "!! Unsupported terminal, password will be echoed.")
	fmt.Fprint(os.Stderr, prompt)
	stdinOnce.Do(func() { stdinReader = bufio.NewReader(os.Stdin) })
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
