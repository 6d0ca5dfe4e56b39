package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type target struct {
	Name     string `json:"name"`
	Gateway  string `json:"gateway"`
	Upstream string `json:"upstream"`
	Critical bool   `json:"critical"`
}

type probeConfig struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target       target
	ColdHit      bool
	WarmHit      bool
	PayloadMatch bool
	ColdLatency  time.Duration
	WarmLatency  time.Duration
	Error        error
}

func main() {
	var (
		gatewayBase  string
		upstreamBase string
		token        string
		targetsPath  string
		timeout      time.Duration
	)

	flag.StringVar(&gatewayBase, "gateway", "http://localhost:8090/api/v1", "Curriculum gateway base URL")
	flag.StringVar(&upstreamBase, "upstream", "http://localhost:8000/api/admin-cabang", "Upstream REST base URL including role prefix")
	flag.StringVar(&token, "token", os.Getenv("UPSTREAM_TOKEN"), "Bearer token for the upstream API")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "cache_probe", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		probes   []probe
		breaking int
		warnings int
	)
	for _, t := range targets {
		p := runProbe(client, gatewayBase, upstreamBase, token, t)
		failed := p.Error != nil || !p.PayloadMatch || !p.WarmHit
		if failed {
			if t.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		probes = append(probes, p)
	}

	printReport(probes)
	fmt.Printf("Breaking: %d, Warnings: %d\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg probeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

// runProbe forces a refresh through the gateway, reads the same query again to
// confirm it is served from cache, then checks the ids against upstream.
func runProbe(client *http.Client, gatewayBase, upstreamBase, token string, tgt target) probe {
	p := probe{Target: tgt}

	cold, coldHit, coldDur, err := get(client, join(gatewayBase, withRefresh(tgt.Gateway)), "")
	if err != nil {
		p.Error = fmt.Errorf("gateway refresh: %w", err)
		return p
	}
	p.ColdHit, p.ColdLatency = coldHit, coldDur

	warm, warmHit, warmDur, err := get(client, join(gatewayBase, tgt.Gateway), "")
	if err != nil {
		p.Error = fmt.Errorf("gateway cached read: %w", err)
		return p
	}
	p.WarmHit, p.WarmLatency = warmHit, warmDur

	remote, _, _, err := get(client, join(upstreamBase, tgt.Upstream), token)
	if err != nil {
		p.Error = fmt.Errorf("upstream: %w", err)
		return p
	}

	p.PayloadMatch = sameIdentity(gjson.GetBytes(warm, "data"), gjson.GetBytes(remote, "data")) &&
		sameIdentity(gjson.GetBytes(cold, "data"), gjson.GetBytes(warm, "data"))
	return p
}

func get(client *http.Client, url, token string) ([]byte, bool, time.Duration, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, false, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, false, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, 0, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error.message").String()
		}
		return nil, false, 0, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return body, resp.Header.Get("X-Cache-Hit") == "true", time.Since(start), nil
}

// sameIdentity compares the ids carried by two payloads. The gateway
// normalises field names, so only ids and list lengths are comparable with
// the upstream shape.
func sameIdentity(a, b gjson.Result) bool {
	if !a.Exists() || !b.Exists() {
		return a.Exists() == b.Exists()
	}
	return reflect.DeepEqual(ids(a), ids(b))
}

func ids(v gjson.Result) []string {
	if !v.IsArray() {
		return []string{v.Get("id").String()}
	}
	out := make([]string, 0, len(v.Array()))
	for _, item := range v.Array() {
		out = append(out, item.Get("id").String())
	}
	return out
}

func join(base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

func withRefresh(path string) string {
	if strings.Contains(path, "?") {
		return path + "&refresh=true"
	}
	return path + "?refresh=true"
}

func printReport(results []probe) {
	fmt.Println("Cache Probe Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Error != nil:
			status = "ERROR"
		case !res.PayloadMatch:
			status = "DIFF"
		case !res.WarmHit:
			status = "MISS"
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Target.Name, res.Target.Gateway)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Refresh: hit=%t (%s) | Cached: hit=%t (%s)\n", res.ColdHit, res.ColdLatency, res.WarmHit, res.WarmLatency)
		fmt.Printf("  Payload match: %t | Critical: %t\n", res.PayloadMatch, res.Target.Critical)
	}
}
