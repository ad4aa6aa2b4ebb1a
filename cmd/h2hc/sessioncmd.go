package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginUserID   string
	loginPassword string
	loginPin      string
	loginPeerAddr string
)

var loginCmd = &cobra.Command{
	Use:   "login [root-path]",
	Short: "Log the daemon's user in against a local file tree",
	Run:   wrap(logincmd),
}

func logincmd(rootPath string) {
	err := postJSON("/session/login", sessionRequestBody{
		RootPath:        rootPath,
		SelfPeerAddress: loginPeerAddr,
	})
	if err != nil {
		die("Could not log in:", err)
	}
	fmt.Println("Logged in.")
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log the daemon's user out",
	Run:   wrap(logoutcmd),
}

func logoutcmd() {
	err := postJSON("/session/logout", sessionRequestBody{SelfPeerAddress: loginPeerAddr})
	if err != nil {
		die("Could not log out:", err)
	}
	fmt.Println("Logged out.")
}

// sessionRequestBody mirrors api.sessionRequest's JSON shape.
type sessionRequestBody struct {
	RootPath        string `json:"rootPath"`
	SelfPeerAddress string `json:"selfPeerAddress"`
}

func init() {
	loginCmd.Flags().StringVar(&loginPeerAddr, "peer-addr", "", "this device's address as seen by other peers")
	logoutCmd.Flags().StringVar(&loginPeerAddr, "peer-addr", "", "this device's address as seen by other peers")
}
