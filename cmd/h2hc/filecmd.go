package main

import (
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [local-file] [remote-path]",
	Short: "Upload a local file as a brand-new remote file",
	Run:   wrap(addcmd),
}

func addcmd(localFile, remotePath string) {
	uploadFile(http.MethodPost, localFile, remotePath)
	fmt.Println("Added", remotePath)
}

var updateCmd = &cobra.Command{
	Use:   "update [local-file] [remote-path]",
	Short: "Upload a new version of an existing remote file",
	Run:   wrap(updatecmd),
}

func updatecmd(localFile, remotePath string) {
	uploadFile(http.MethodPut, localFile, remotePath)
	fmt.Println("Updated", remotePath)
}

func uploadFile(method, localFile, remotePath string) {
	content, err := ioutil.ReadFile(localFile)
	if err != nil {
		die("Could not read local file:", err)
	}
	resp, err := apiCall(method, "/files"+remotePath, content)
	if err != nil {
		die("Upload failed:", err)
	}
	resp.Body.Close()
}

var deleteCmd = &cobra.Command{
	Use:   "delete [remote-path]",
	Short: "Delete a remote file",
	Run:   wrap(deletecmd),
}

func deletecmd(remotePath string) {
	resp, err := apiCall(http.MethodDelete, "/files"+remotePath, nil)
	if err != nil {
		die("Could not delete file:", err)
	}
	resp.Body.Close()
	fmt.Println("Deleted", remotePath)
}

var moveCmd = &cobra.Command{
	Use:   "move [from] [to]",
	Short: "Move or rename a remote file",
	Run:   wrap(movecmd),
}

func movecmd(from, to string) {
	if err := postJSON("/move", moveRequestBody{From: from, To: to}); err != nil {
		die("Could not move file:", err)
	}
	fmt.Println("Moved", from, "to", to)
}

type moveRequestBody struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var (
	shareFriendProtectionKeyB64 string
)

var shareCmd = &cobra.Command{
	Use:   "share [remote-folder] [friend-user-id]",
	Short: "Share a remote folder with another user",
	Run:   wrap(sharecmd),
}

func sharecmd(remoteFolder, friendUserID string) {
	err := postJSON("/share", shareRequestBody{
		Path:                   remoteFolder,
		FriendUserID:           friendUserID,
		FriendProtectionKeyB64: shareFriendProtectionKeyB64,
	})
	if err != nil {
		die("Could not share folder:", err)
	}
	fmt.Println("Shared", remoteFolder, "with", friendUserID)
}

type shareRequestBody struct {
	Path                   string `json:"path"`
	FriendUserID           string `json:"friendUserId"`
	FriendProtectionKeyB64 string `json:"friendProtectionKey"`
}

var (
	recoverVersionIndex int
	recoverDestPath     string
)

var recoverCmd = &cobra.Command{
	Use:   "recover [remote-path]",
	Short: "Recover an older version of a remote file to a local path",
	Run:   wrap(recovercmd),
}

func recovercmd(remotePath string) {
	err := postJSON("/recover", recoverRequestBody{
		Path:         remotePath,
		VersionIndex: recoverVersionIndex,
		DestPath:     recoverDestPath,
	})
	if err != nil {
		die("Could not recover file:", err)
	}
	fmt.Println("Recovered", remotePath, "to", recoverDestPath)
}

type recoverRequestBody struct {
	Path         string `json:"path"`
	VersionIndex int    `json:"versionIndex"`
	DestPath     string `json:"destPath"`
}

func init() {
	shareCmd.Flags().StringVar(&shareFriendProtectionKeyB64, "friend-key", "", "base64-encoded DER public key of the friend's protection keypair")
	recoverCmd.Flags().IntVar(&recoverVersionIndex, "index", 0, "version index to recover")
	recoverCmd.Flags().StringVar(&recoverDestPath, "dest", "", "local destination path for the recovered file")
}
