package notify

import "pricetrack/models"

// ProductThresholdMet reports whether a new history row crosses the
// product's alert threshold: at or below the absolute notify price, or a
// percent drop from the first-ever recorded price exceeding the notify
// percent.
func ProductThresholdMet(product *models.Product, history *models.PriceHistory, first *models.PriceHistory) bool {
	if product.NotifyPrice.Valid && history.Price <= product.NotifyPrice.Float64 {
		return true
	}

	if product.NotifyPercent.Valid && first != nil && first.Price > 0 {
		drop := (first.Price - history.Price) / first.Price * 100
		if drop > product.NotifyPercent.Float64 {
			return true
		}
	}

	return false
}

// PriceChangedSinceLastNotification reports whether an alert for the
// current row would be news: no alert has fired for this URL yet, or the
// price moved at some point since the one that did. A price that has sat
// unchanged since the last alert stays silent.
func PriceChangedSinceLastNotification(lastNotified *models.PriceHistory, since []models.PriceHistory, current *models.PriceHistory) bool {
	if lastNotified == nil {
		return true
	}
	if lastNotified.Price != current.Price {
		return true
	}
	for _, row := range since {
		if row.Price != current.Price {
			return true
		}
	}
	return false
}
