package utils

import (
	"log"
	"net"
	"net/url"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

type GeoLocation struct {
	Country string
	City    string
}

// GeoResolver annotates upstream node hosts with their physical location.
// Lookups are cached per host. With no database configured every lookup
// resolves to Unknown, so callers never need to branch on availability.
type GeoResolver struct {
	db    *geoip2.Reader
	cache sync.Map // map[string]GeoLocation
}

func NewGeoResolver(dbPath string) *GeoResolver {
	var db *geoip2.Reader
	if dbPath != "" {
		var err error
		db, err = geoip2.Open(dbPath)
		if err != nil {
			log.Printf("Could not open GeoIP database at %s: %v", dbPath, err)
			db = nil
		}
	}
	return &GeoResolver{db: db}
}

func (g *GeoResolver) Close() {
	if g != nil && g.db != nil {
		g.db.Close()
	}
}

// LookupHost resolves a node URL's host to a location. Safe on a nil
// receiver and with no database loaded.
func (g *GeoResolver) LookupHost(nodeURL string) GeoLocation {
	unknown := GeoLocation{Country: "Unknown", City: "Unknown"}
	if g == nil || g.db == nil {
		return unknown
	}

	u, err := url.Parse(nodeURL)
	if err != nil || u.Hostname() == "" {
		return unknown
	}
	host := u.Hostname()

	if val, ok := g.cache.Load(host); ok {
		return val.(GeoLocation)
	}

	loc := unknown
	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err == nil && len(addrs) > 0 {
			ip = addrs[0]
		}
	}
	if ip != nil {
		record, err := g.db.City(ip)
		if err == nil {
			if c := record.Country.Names["en"]; c != "" {
				loc.Country = c
			}
			if c := record.City.Names["en"]; c != "" {
				loc.City = c
			}
		}
	}

	g.cache.Store(host, loc)
	return loc
}
