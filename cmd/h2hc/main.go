// Command h2hc is the CLI client for h2hd: it drives login, file
// operations, and sharing by talking to the daemon's control API.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"reflect"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/hive2hive/h2h/api"
	"github.com/hive2hive/h2h/build"
)

var (
	addr        string // override default API address
	apiPassword string // cached so we don't prompt on every call
)

const (
	exitCodeGeneral = 1
	exitCodeUsage   = 64
)

func non2xx(code int) bool {
	return code < 200 || code > 299
}

func decodeError(resp *http.Response) error {
	var apiErr api.Error
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return err
	}
	return apiErr
}

func passwordPrompt(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return string(pw), err
}

// apiCall issues method against call, prompting for and caching the API
// password on the first 401. Unlike the teacher's siac (GET/POST only),
// h2hd's file routes need PUT and DELETE too, so this builds the request
// directly rather than going through api.HttpGETAuthenticated/
// HttpPOSTAuthenticated.
func apiCall(method, call string, body []byte) (*http.Response, error) {
	if host, port, _ := net.SplitHostPort(addr); host == "" {
		addr = net.JoinHostPort("localhost", port)
	}
	url := "http://" + addr + call

	do := func() (*http.Response, error) {
		req, err := http.NewRequest(method, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "H2H-Agent")
		req.SetBasicAuth("", apiPassword)
		return http.DefaultClient.Do(req)
	}

	resp, err := do()
	if err != nil {
		return nil, errors.New("no response from daemon")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		var perr error
		apiPassword, perr = passwordPrompt("API password: ")
		if perr != nil {
			return nil, perr
		}
		resp, err = do()
		if err != nil {
			return nil, errors.New("no response from daemon - authentication failed")
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errors.New("API call not recognized: " + call)
	}
	if non2xx(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func postJSON(call string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := apiCall(http.MethodPost, call, data)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// wrap adapts a function taking only string arguments into a cobra.Command
// Run func, exiting with usage on an arity mismatch.
func wrap(fn interface{}) func(*cobra.Command, []string) {
	fnVal, fnType := reflect.ValueOf(fn), reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		panic("wrapped function has wrong type signature")
	}
	for i := 0; i < fnType.NumIn(); i++ {
		if fnType.In(i).Kind() != reflect.String {
			panic("wrapped function has wrong type signature")
		}
	}
	return func(cmd *cobra.Command, args []string) {
		if len(args) != fnType.NumIn() {
			cmd.UsageFunc()(cmd)
			os.Exit(exitCodeUsage)
		}
		argVals := make([]reflect.Value, fnType.NumIn())
		for i := range args {
			argVals[i] = reflect.ValueOf(args[i])
		}
		fnVal.Call(argVals)
	}
}

func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(exitCodeGeneral)
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "H2H Client v" + build.Version,
		Long:  "H2H Client v" + build.Version,
		Run:   wrap(versioncmd),
	}

	root.AddCommand(versionCmd)
	root.AddCommand(loginCmd)
	root.AddCommand(logoutCmd)
	root.AddCommand(addCmd)
	root.AddCommand(updateCmd)
	root.AddCommand(deleteCmd)
	root.AddCommand(moveCmd)
	root.AddCommand(shareCmd)
	root.AddCommand(recoverCmd)
	root.AddCommand(eventsCmd)

	root.PersistentFlags().StringVarP(&addr, "addr", "a", "localhost:9980", "which host/port h2hd is listening on")

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeUsage)
	}
}
