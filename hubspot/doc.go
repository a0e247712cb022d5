// Package hubspot is a minimal client for the HubSpot CRM v3 contacts API.
//
// It covers exactly what the bridge needs: search a contact by email,
// create one, patch one, and the upsert composition of the three. Requests
// pass through a token-bucket throttle and a bounded retry loop for 429
// and 5xx responses.
package hubspot
