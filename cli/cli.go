package cli

import (
	"adgate/models"
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CLI is the interactive operator console against a running adgate server
type CLI struct {
	scanner *bufio.Scanner
	client  *Client
	running bool
}

// Run starts the console main loop
func Run(serverURL, adminToken string) {
	c := &CLI{
		scanner: bufio.NewScanner(os.Stdin),
		client:  NewClient(serverURL, adminToken),
		running: true,
	}
	c.start(serverURL)
}

func (c *CLI) start(serverURL string) {
	PrintBanner("adgate - Operator Console")
	fmt.Printf("\nServer: %s\n", serverURL)
	fmt.Println("Type 'help' for available commands")

	for c.running {
		fmt.Print("\n> ")
		if !c.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(c.scanner.Text())
		if input == "" {
			continue
		}

		c.handleCommand(input)
	}
}

func (c *CLI) handleCommand(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.showHelp()
	case "apps":
		c.handleApps()
	case "patch":
		c.handlePatch(args)
	case "quota":
		c.handleQuota(args)
	case "events":
		c.handleEvents(args)
	case "errors":
		c.handleErrors()
	case "stats":
		c.handleStats()
	case "health", "status", "st":
		c.handleHealth()
	case "version", "v":
		c.handleVersion()
	case "exit", "quit", "q":
		c.running = false
	default:
		fmt.Printf("Unknown command: %s (try 'help')\n", cmd)
	}
}

func (c *CLI) showHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  apps                              List mini-application catalog")
	fmt.Println("  patch <app_key> <limit> [on|off]  Update free limit / enabled flag (admin)")
	fmt.Println("  quota <app_key> <device_id>       Show quota for a device/app pair")
	fmt.Println("  events [n]                        Tail recent ad ticket events (admin)")
	fmt.Println("  errors                            Show recent service errors (admin)")
	fmt.Println("  stats                             Show site counters")
	fmt.Println("  health                            Server health check")
	fmt.Println("  version                           Server version")
	fmt.Println("  exit                              Quit")
}

func (c *CLI) handleApps() {
	var data struct {
		Items []models.AppSetting `json:"items"`
	}
	if err := c.client.call("GET", "/api/quiz/apps", nil, &data); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if len(data.Items) == 0 {
		fmt.Println("No apps configured")
		return
	}
	fmt.Printf("%-16s %-12s %-10s %-8s %s\n", "APP_KEY", "CATEGORY", "FREE_LIMIT", "ENABLED", "TITLE")
	for _, app := range data.Items {
		fmt.Printf("%-16s %-12s %-10d %-8v %s\n", app.AppKey, app.Category, app.FreeLimit, app.Enabled, app.Title)
	}
}

func (c *CLI) handlePatch(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: patch <app_key> <free_limit> [on|off]")
		return
	}

	freeLimit, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Invalid free limit: %s\n", args[1])
		return
	}

	enabled := true
	if len(args) >= 3 {
		switch strings.ToLower(args[2]) {
		case "on", "true", "1":
			enabled = true
		case "off", "false", "0":
			enabled = false
		default:
			fmt.Printf("Invalid enabled flag: %s (use on/off)\n", args[2])
			return
		}
	}

	req := models.AppSettingPatch{AppKey: args[0], FreeLimit: freeLimit, Enabled: &enabled}
	if err := c.client.call("POST", "/api/quiz/apps/setting", req, nil); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Updated %s: free_limit=%d enabled=%v\n", args[0], freeLimit, enabled)
}

func (c *CLI) handleQuota(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: quota <app_key> <device_id>")
		return
	}

	var status models.QuotaStatus
	path := fmt.Sprintf("/api/quiz/quota/%s/%s", args[0], args[1])
	if err := c.client.call("GET", path, nil, &status); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Device:         %s\n", status.DeviceID)
	fmt.Printf("App:            %s\n", status.AppKey)
	fmt.Printf("Free limit:     %d\n", status.FreeLimit)
	fmt.Printf("Free remaining: %d\n", status.FreeRemaining)
	fmt.Printf("Ad credits:     %d\n", status.AdCredits)
	fmt.Printf("Can use:        %v\n", status.CanUse)
}

func (c *CLI) handleEvents(args []string) {
	limit := 20
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	var data struct {
		Items []models.AdEvent `json:"items"`
	}
	path := fmt.Sprintf("/api/ad-events?limit=%d", limit)
	if err := c.client.call("GET", path, nil, &data); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if len(data.Items) == 0 {
		fmt.Println("No events")
		return
	}
	for _, e := range data.Items {
		detail := ""
		if e.Detail != "" {
			detail = " (" + e.Detail + ")"
		}
		fmt.Printf("%s  %-9s %s/%s ticket=%s%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.DeviceID, e.AppKey, e.TicketID, detail)
	}
}

func (c *CLI) handleErrors() {
	var data struct {
		Items []models.ErrorLog `json:"items"`
	}
	if err := c.client.call("GET", "/api/error-logs", nil, &data); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if len(data.Items) == 0 {
		fmt.Println("No errors")
		return
	}
	for _, l := range data.Items {
		fmt.Printf("%s  [%s] %s: %s\n", l.Timestamp.Format("2006-01-02 15:04:05"), l.Source, l.Message, l.Detail)
	}
}

func (c *CLI) handleStats() {
	var data struct {
		PageViews int64 `json:"page_views"`
	}
	if err := c.client.call("GET", "/api/stats", nil, &data); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Page views: %d\n", data.PageViews)
}

func (c *CLI) handleHealth() {
	health, err := c.client.HealthCheck()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		if health == nil {
			return
		}
	}
	for _, key := range []string{"status", "db_healthy", "secret_configured", "sqlite_busy", "sqlite_locked"} {
		if v, okKey := health[key]; okKey {
			fmt.Printf("%-18s %v\n", key+":", v)
		}
	}
}

func (c *CLI) handleVersion() {
	var data struct {
		Version string `json:"version"`
		Commit  string `json:"commit"`
		Built   string `json:"built"`
	}
	if err := c.client.call("GET", "/api/version", nil, &data); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Version: %s\nCommit: %s\nBuilt: %s\n", data.Version, data.Commit, data.Built)
}
