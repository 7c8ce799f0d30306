// Package portfolio builds the stock snapshot that enriches the daily
// report: holdings come from a CSV file, live quotes from Finnhub.
package portfolio
