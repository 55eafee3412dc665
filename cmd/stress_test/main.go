package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	baseURL       = "http://localhost:8080"
	writers       = 10
	readers       = 40
	updatesEach   = 20
	password      = "stress-password"
	initialAmount = 0
)

type item struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Hammers one item with concurrent updates and cached reads, then checks that
// the cached snapshot matches the stored row and that a delete is not served
// from the cache afterwards.
func main() {
	client := &http.Client{Timeout: 10 * time.Second}
	username := "stress-" + uuid.NewString()[:8]

	mustStatus(post(client, "/register", "", map[string]string{
		"username": username, "password": password, "email": username + "@example.com", "phone": "555",
	}), http.StatusCreated)

	var login struct {
		Access string `json:"access"`
	}
	decode(mustStatus(post(client, "/login", "", map[string]string{
		"username": username, "password": password,
	}), http.StatusOK), &login)

	var created item
	decode(mustStatus(post(client, "/items", login.Access, map[string]any{
		"name": "stress-item-" + uuid.NewString(), "quantity": initialAmount, "price": 1.5,
	}), http.StatusCreated), &created)

	itemPath := fmt.Sprintf("/items/%d", created.ID)

	var okUpdates, conflicts, staleReads atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < updatesEach; i++ {
				resp := do(client, http.MethodPut, itemPath, login.Access, map[string]int{"quantity": w*updatesEach + i})
				switch resp.StatusCode {
				case http.StatusOK:
					okUpdates.Add(1)
				case http.StatusConflict:
					conflicts.Add(1)
				default:
					log.Printf("unexpected update status %d", resp.StatusCode)
				}
				resp.Body.Close()
			}
		}(w)
	}

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := do(client, http.MethodGet, itemPath, login.Access, nil)
			if resp.StatusCode != http.StatusOK {
				staleReads.Add(1)
			}
			resp.Body.Close()
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Final read goes through the cache; the list endpoint always hits the store.
	var cached item
	decode(mustStatus(do(client, http.MethodGet, itemPath, login.Access, nil), http.StatusOK), &cached)

	var listed []item
	decode(mustStatus(do(client, http.MethodGet, "/items", login.Access, nil), http.StatusOK), &listed)

	var stored item
	for _, it := range listed {
		if it.ID == created.ID {
			stored = it
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Item ID:          %d\n", created.ID)
	fmt.Printf("Updates OK:       %d\n", okUpdates.Load())
	fmt.Printf("Update conflicts: %d\n", conflicts.Load())
	fmt.Printf("Failed reads:     %d\n", staleReads.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if cached.Quantity == stored.Quantity {
		fmt.Printf("PASS: cached quantity %d matches store\n", cached.Quantity)
	} else {
		fmt.Printf("FAIL: cached quantity %d, store has %d\n", cached.Quantity, stored.Quantity)
	}

	mustStatus(do(client, http.MethodDelete, itemPath, login.Access, nil), http.StatusNoContent).Body.Close()

	resp := do(client, http.MethodGet, itemPath, login.Access, nil)
	resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		fmt.Println("PASS: deleted item is not served from cache")
	} else {
		fmt.Printf("FAIL: expected 404 after delete, got %d\n", resp.StatusCode)
	}
}

func post(client *http.Client, path, access string, body any) *http.Response {
	return do(client, http.MethodPost, path, access, body)
}

func do(client *http.Client, method, path, access string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func mustStatus(resp *http.Response, want int) *http.Response {
	if resp.StatusCode != want {
		log.Fatalf("%s %s: expected status %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
	return resp
}

func decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		log.Fatalf("decode response: %v", err)
	}
}
