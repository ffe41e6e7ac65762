package scanning

// Each prompt asks for a single JSON object so replies share one decoding path.

const systemPrompt = "You are an expert at reading supermarket receipts from Cyprus, printed in Greek or English. " +
	"Read every line of the image carefully and answer with JSON only."

const itemsPrompt = `Extract every purchased product from this grocery receipt.

Return ONLY valid JSON in this exact format:
{
  "items": [
    {
      "name": "product name as printed",
      "quantity": 1,
      "unit": "pieces",
      "price": 0.00,
      "pricePerUnit": null,
      "isWeightBased": false,
      "expiryDate": null
    }
  ]
}

Rules:
- "price" is the line total actually paid for the item, as a number.
- For goods sold by weight or volume (for example "1,230 kg x 2,50 €/kg"), set "quantity" to the weight,
  "unit" to kg, g, l or ml, "pricePerUnit" to the price per unit and "isWeightBased" to true.
- Otherwise "quantity" is the number of pieces and "unit" is "pieces".
- Use a period as the decimal separator.
- "expiryDate" is YYYY-MM-DD only if a best-before date is printed, otherwise null.
- Skip totals, subtotals, VAT lines, payment lines, discounts and loyalty messages.
- Do not include any text before or after the JSON and do not use markdown code blocks.`

const storePrompt = `Identify the store that issued this receipt.

Return ONLY valid JSON in this exact format:
{
  "name": "store or chain name",
  "location": "branch address or town",
  "phone": null,
  "fax": null,
  "vatNumber": null,
  "taxId": null
}

Rules:
- Take the name from the header at the top of the receipt.
- "vatNumber" is the VAT registration (ΦΠΑ / VAT No) and "taxId" the tax identification number (ΑΦΜ / TIC).
- Use null for anything that is not printed.
- Do not include any text before or after the JSON and do not use markdown code blocks.`

const detailsPrompt = `Extract the transaction details from this receipt.

Return ONLY valid JSON in this exact format:
{
  "receiptNumber": null,
  "date": "YYYY-MM-DD",
  "time": "HH:MM:SS",
  "cashier": null,
  "paymentMethod": "CASH",
  "totalAmount": 0.00,
  "vatBreakdown": [
    {"rate": 19, "amount": 0.00, "netAmount": 0.00, "grossAmount": 0.00}
  ],
  "language": "Greek"
}

Rules:
- "paymentMethod" is one of VISA, MASTERCARD, MAESTRO, AMEX, CARD or CASH.
- "totalAmount" is the final amount paid, as a number.
- VAT rates in Cyprus are 0, 5, 9 and 19 percent; list one entry per rate printed.
- "language" is the language the receipt is printed in, "Greek" or "English".
- Use null for anything that is not printed.
- Do not include any text before or after the JSON and do not use markdown code blocks.`
